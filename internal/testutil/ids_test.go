package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator_ReturnsIDsInOrder(t *testing.T) {
	gen := NewFixedIDGenerator(
		"01890a5d-ac96-774b-bcce-b302099a8057",
		"01890a5d-ac96-774b-bcce-b302099a8058",
	)

	assert.Equal(t, "01890a5d-ac96-774b-bcce-b302099a8057", gen.Generate().String())
	assert.Equal(t, "01890a5d-ac96-774b-bcce-b302099a8058", gen.Generate().String())
	assert.Equal(t, "01890a5d-ac96-774b-bcce-b302099a8058", gen.Generate().String(), "last ID repeats")
}

func TestFixedIDGenerator_Empty(t *testing.T) {
	assert.Equal(t, uuid.Nil, NewFixedIDGenerator().Generate())
}
