package uploader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGate(s Surface) *Gate {
	return NewGate(s, "uploader@example.com", "hunter2", testBudgets(), zap.NewNop())
}

func TestGateAlreadyAuthenticated(t *testing.T) {
	s := newFakeSurface()
	s.add(RoleSignedIn, &fakeControl{})
	s.add(RoleCreateNew, &fakeControl{})
	signIn := s.add(RoleSignIn, &fakeControl{})

	require.NoError(t, newTestGate(s).EnsureAuthenticated(context.Background()))
	assert.Equal(t, 0, signIn.clicks, "no login sub-flow when already authenticated")
}

func TestGateLoginFlow(t *testing.T) {
	s := newFakeSurface()
	s.add(RoleCreateNew, &fakeControl{})

	identifier := &fakeControl{}
	password := &fakeControl{}

	signIn := s.add(RoleSignIn, &fakeControl{})
	signIn.onClick = func() { s.add(RoleIdentifier, identifier) }

	// The same continue control advances both identity steps.
	cont := s.add(RoleContinue, &fakeControl{})
	cont.onClick = func() {
		switch cont.clicks {
		case 1:
			s.add(RolePassword, password)
		case 2:
			s.add(RoleSignedIn, &fakeControl{})
		}
	}

	require.NoError(t, newTestGate(s).EnsureAuthenticated(context.Background()))

	assert.Equal(t, []string{"uploader@example.com"}, identifier.inputs)
	assert.Equal(t, []string{"hunter2"}, password.inputs)
	assert.Equal(t, 2, cont.clicks)
}

func TestGateCredentialPromptTimeout(t *testing.T) {
	s := newFakeSurface()
	s.add(RoleCreateNew, &fakeControl{})

	signIn := s.add(RoleSignIn, &fakeControl{})
	signIn.onClick = func() { s.add(RoleIdentifier, &fakeControl{}) }
	s.add(RoleContinue, &fakeControl{}) // password prompt never appears

	err := newTestGate(s).EnsureAuthenticated(context.Background())

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "credential prompt", ae.Step)
}

func TestGateUIFaultAfterLogin(t *testing.T) {
	s := newFakeSurface()
	s.add(RoleCreateNew, &fakeControl{})
	s.add(RoleAuthFault, &fakeControl{text: "Password is incorrect"})

	signIn := s.add(RoleSignIn, &fakeControl{})
	signIn.onClick = func() { s.add(RoleIdentifier, &fakeControl{}) }
	cont := s.add(RoleContinue, &fakeControl{})
	cont.onClick = func() {
		switch cont.clicks {
		case 1:
			s.add(RolePassword, &fakeControl{})
		case 2:
			s.add(RoleSignedIn, &fakeControl{})
		}
	}

	err := newTestGate(s).EnsureAuthenticated(context.Background())

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Error(), "incorrect")
}

func TestGateLoginNeverOffered(t *testing.T) {
	s := newFakeSurface()

	err := newTestGate(s).EnsureAuthenticated(context.Background())

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "open login", ae.Step)
}
