package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeVerifyToken(t *testing.T) {
	secretKey := "secret"
	timeout := 3 * 24 * time.Hour

	now := time.Now()
	usr := User{
		ID:        "8d3c2e0a-9f1b-4c43-9a63-2b1f1fd7a001",
		Name:      "T",
		Username:  "t",
		Email:     "t@test.test",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	require.NoError(t, usr.SetPassword("pwd"))

	validToken, err := makeToken(usr, secretKey)
	require.NoError(t, err)

	// generate an expired token
	dayLate := timeout + (24 * time.Hour)
	nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := makeToken(usr, secretKey)
	nowFunc = time.Now // reset
	require.NoError(t, err)

	loggedInAgain := usr
	loggedInAgain.LastLogin = now.Add(time.Hour)

	tests := []struct {
		name    string
		usr     User
		token   string
		secret  string
		wantErr error
	}{
		{name: "no token", usr: usr, secret: secretKey, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", secret: secretKey, wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", secret: secretKey, wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", secret: secretKey, wantErr: errInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", secret: secretKey, wantErr: errInvalidToken},
		{name: "other secret", usr: usr, token: validToken, secret: "other", wantErr: errInvalidToken},
		{name: "login since issued", usr: loggedInAgain, token: validToken, secret: secretKey, wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, secret: secretKey, wantErr: errTokenExpired},
		{name: "valid token", usr: usr, token: validToken, secret: secretKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, verifyToken(tt.usr, tt.token, tt.secret, timeout))
		})
	}
}

func TestEncodeUID(t *testing.T) {
	usr := User{ID: "8d3c2e0a-9f1b-4c43-9a63-2b1f1fd7a001"}
	id, err := decodeUID(EncodeUID(usr))
	require.NoError(t, err)
	assert.Equal(t, usr.ID, id)

	_, err = decodeUID("%%%")
	assert.Error(t, err)
}
