package session

import (
	"testing"
	"time"

	"github.com/bigongold/loan-manager/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    domain.Session
		wantErr bool
	}{
		{name: "no arguments", args: nil, want: domain.GuestSession},
		{name: "role only", args: []string{"Admin"}, want: domain.Session{Role: domain.RoleAdmin, Username: "Guest"}},
		{name: "role and user", args: []string{"Staff", "clerk"}, want: domain.Session{Role: domain.RoleStaff, Username: "clerk"}},
		{name: "extra arguments ignored", args: []string{"Admin", "boss", "-out"}, want: domain.Session{Role: domain.RoleAdmin, Username: "boss"}},
		{name: "unknown role", args: []string{"Owner", "x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromArgs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSigner_RoundTrip(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)
	want := domain.Session{Role: domain.RoleAdmin, Username: "boss"}

	token, expires, err := signer.Issue(want)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	got, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSigner_Rejects(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)
	token, _, err := signer.Issue(domain.Session{Role: domain.RoleStaff, Username: "clerk"})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewSigner("other-secret", time.Hour).Parse(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewSigner("test-secret", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Parse(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := signer.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}
