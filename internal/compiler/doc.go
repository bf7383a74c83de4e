// Package compiler turns CUE specs into entity definitions and queries.
//
// A specs directory declares entities and named queries:
//
//	entity: Customer: {
//		columns: {
//			Id:   {type: "int64", pk: true}
//			Name: "string"
//		}
//	}
//
//	entity: Order: {
//		table: "orders"
//		columns: {
//			Id:       {type: "int64", pk: true}
//			Customer: {reference: "Customer", nullable: true}
//			Total:    "float"
//			Version:  {type: "int64", version: true}
//		}
//	}
//
//	query: bigOrders: {
//		from: "Order"
//		where: [{field: "Total", op: ">", value: 100}]
//		orderBy: [{field: "Total", desc: true}]
//		limit: 10
//		cache: "big-orders"
//	}
//
// Entities become runtime types through model.Provider.Define, ordered
// so that referenced entities are defined first. Queries become host
// expressions over those types and run through the query package like
// any other expression.
package compiler
