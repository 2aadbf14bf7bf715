package di

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNotRegisteredError_Message verifies the rendered message and nil-type
// tolerance.
func TestNotRegisteredError_Message(t *testing.T) {
	t.Parallel()

	err := NotRegisteredError{Type: typeOf[*svcDB]()}
	assert.Equal(t, "di: type *di.svcDB not registered", err.Error())

	assert.Equal(t, "di: type <nil> not registered", NotRegisteredError{}.Error())
}

// TestTypeMismatchError_Message verifies the rendered message.
func TestTypeMismatchError_Message(t *testing.T) {
	t.Parallel()

	err := TypeMismatchError{Type: typeOf[svcAPI](), GotType: "*di.svcDB"}
	assert.Equal(t, "di: type mismatch for di.svcAPI (got *di.svcDB)", err.Error())
}

// TestDuplicateRegistrationError_Message verifies the key is quoted.
func TestDuplicateRegistrationError_Message(t *testing.T) {
	t.Parallel()

	err := DuplicateRegistrationError{Kind: "namespace", Key: "app.ui"}
	assert.Equal(t, `di: duplicate namespace registration "app.ui"`, err.Error())
}

// TestCircularDependencyError_Message verifies the chain rendering.
func TestCircularDependencyError_Message(t *testing.T) {
	t.Parallel()

	err := CircularDependencyError{
		Chain: []reflect.Type{typeOf[*svcDB](), typeOf[svcAPI](), typeOf[*svcDB]()},
	}
	assert.Equal(t, "di: circular dependency: *di.svcDB -> di.svcAPI -> *di.svcDB", err.Error())
}

// TestNotRegistered_MatchesWrapped verifies detection through error wrapping,
// which the Try* conversion relies on.
func TestNotRegistered_MatchesWrapped(t *testing.T) {
	t.Parallel()

	inner := NotRegisteredError{Type: typeOf[*svcDB]()}
	wrapped := fmt.Errorf("resolving dashboard: %w", inner)

	assert.True(t, notRegistered(wrapped))
	assert.False(t, notRegistered(errors.New("unrelated")))
	assert.False(t, notRegistered(ErrDisposed))
}

// TestSentinels_AreDistinct guards against accidental aliasing of the
// sentinel errors.
func TestSentinels_AreDistinct(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		ErrDisposed,
		ErrAmbiguousScope,
		ErrNilContainer,
		ErrNilInstance,
		ErrNilFactory,
		ErrNilType,
		ErrEmptyNamespace,
		ErrNotPointerOwner,
		ErrOutOfOrderScopeRelease,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			require.NotErrorIs(t, a, b)
		}
	}
}
