package unsafeprinter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrettify(t *testing.T) {
	pretty := Prettify(`type Query { me: User } type User { id: ID! }`)
	assert.Contains(t, pretty, "type Query {\n  me: User\n}")
	assert.Contains(t, pretty, "type User {\n  id: ID!\n}")

	assert.Panics(t, func() { Prettify("type Query {") })
}

func TestDefinitionNames(t *testing.T) {
	assert.Equal(t, []string{"Query", "Role"}, DefinitionNames(`type Query { role: Role } enum Role { ADMIN }`))
}
