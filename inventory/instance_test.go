package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusAvailable, StatusCheckedOut, StatusMaintenance, StatusRetired} {
		assert.True(t, s.Valid())
	}
	assert.False(t, Status("broken").Valid())
	assert.False(t, Status("").Valid())
}

func TestOnlyAvailableIsLendable(t *testing.T) {
	assert.True(t, StatusAvailable.Lendable())
	assert.False(t, StatusCheckedOut.Lendable())
	assert.False(t, StatusMaintenance.Lendable())
	assert.False(t, StatusRetired.Lendable())
}
