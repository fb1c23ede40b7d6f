package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type draftOutput struct {
	Title string `json:"title"`
	Score int    `json:"score"`
}

func TestTypes_RegisterLookup(t *testing.T) {
	types := NewTypes()
	types.Register("draft", &draftOutput{})

	xType := types.Lookup("draft")
	if assert.NotNil(t, xType) {
		assert.Equal(t, "draftOutput", xType.Type.Name())
	}
	assert.Nil(t, types.Lookup("unknown"))

	var nilTypes *Types
	assert.Nil(t, nilTypes.Lookup("draft"))
}

func TestTypes_Rehydrate(t *testing.T) {
	types := NewTypes()
	types.Register("draft", draftOutput{})

	// The shape a checkpoint decode produces.
	generic := map[string]interface{}{"title": "plan", "score": float64(7)}
	value, err := types.Rehydrate("draft", generic)
	assert.Nil(t, err)
	assert.Equal(t, draftOutput{Title: "plan", Score: 7}, value)
}

func TestTypes_RehydratePassthrough(t *testing.T) {
	types := NewTypes()

	// No registered type: the generic value flows through untouched.
	generic := map[string]interface{}{"title": "plan"}
	value, err := types.Rehydrate("draft", generic)
	assert.Nil(t, err)
	assert.Equal(t, generic, value)

	value, err = types.Rehydrate("draft", nil)
	assert.Nil(t, err)
	assert.Nil(t, value)
}

func TestTypes_RehydrateMismatch(t *testing.T) {
	types := NewTypes()
	types.Register("draft", draftOutput{})

	_, err := types.Rehydrate("draft", "not an object")
	assert.NotNil(t, err)
}
