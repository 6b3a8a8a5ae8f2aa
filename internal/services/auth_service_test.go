// internal/services/auth_service_test.go
package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/bierstube/storefront/internal/models"
)

func (suite *ServiceTestSuite) register(email string) *AuthResponse {
	resp, err := suite.auth.Register(suite.ctx, &RegisterRequest{
		Email:     email,
		Password:  "Prost2025",
		FirstName: "Greta",
		LastName:  "Gast",
	})
	suite.Require().NoError(err)
	return resp
}

func (suite *ServiceTestSuite) TestRegisterIssuesResolvableToken() {
	resp := suite.register("Greta@Example.com")

	suite.Equal("greta@example.com", resp.User.Email)
	suite.Equal("Greta Gast", resp.User.DisplayName)
	suite.False(resp.User.IsAdmin)
	suite.Equal("Bearer", resp.TokenType)
	suite.Equal(3600, resp.ExpiresIn)

	caller, err := suite.tokens.Resolve(resp.AccessToken)
	suite.Require().NoError(err)
	suite.Equal(resp.User.ID, caller.UID)
	suite.False(caller.IsAdmin)
}

func (suite *ServiceTestSuite) TestRegisterRejectsDuplicatesAndWeakPasswords() {
	suite.register("greta@example.com")

	_, err := suite.auth.Register(suite.ctx, &RegisterRequest{Email: "GRETA@example.com", Password: "Prost2025"})
	suite.assertKind(err, ErrEmailTaken)

	_, err = suite.auth.Register(suite.ctx, &RegisterRequest{Email: "hans@example.com", Password: "prost"})
	suite.assertKind(err, ErrValidationFailed)

	_, err = suite.auth.Register(suite.ctx, &RegisterRequest{Email: "not-an-email", Password: "Prost2025"})
	suite.assertKind(err, ErrValidationFailed)
}

func (suite *ServiceTestSuite) TestLogin() {
	registered := suite.register("greta@example.com")
	suite.advance(time.Hour)

	resp, err := suite.auth.Login(suite.ctx, &LoginRequest{Email: "greta@example.com", Password: "Prost2025"})
	suite.Require().NoError(err)
	suite.Equal(registered.User.ID, resp.User.ID)
	suite.Require().NotNil(resp.User.LastLoginAt)
	suite.Equal(suite.clock, *resp.User.LastLoginAt)

	_, err = suite.auth.Login(suite.ctx, &LoginRequest{Email: "greta@example.com", Password: "Wrong2025"})
	suite.assertKind(err, ErrInvalidCredentials)

	_, err = suite.auth.Login(suite.ctx, &LoginRequest{Email: "nobody@example.com", Password: "Prost2025"})
	suite.assertKind(err, ErrInvalidCredentials)
}

func (suite *ServiceTestSuite) TestMeAndUpdateProfile() {
	resp := suite.register("greta@example.com")
	self := models.Caller{UID: resp.User.ID}

	_, err := suite.auth.Me(suite.ctx, models.Anonymous())
	suite.assertKind(err, ErrUnauthenticated)

	me, err := suite.auth.Me(suite.ctx, self)
	suite.Require().NoError(err)
	suite.Equal("greta@example.com", me.Email)

	name := "Greta G."
	addresses := models.Addresses{{Type: models.AddressTypeShipping, Street: "1 High St", City: "Columbus", IsDefault: true}}
	suite.advance(time.Minute)
	updated, err := suite.auth.UpdateProfile(suite.ctx, self, self.UID, &ProfileUpdate{DisplayName: &name, Addresses: &addresses})
	suite.Require().NoError(err)
	suite.Equal("Greta G.", updated.DisplayName)
	suite.Len(updated.Addresses, 1)
	suite.Equal(suite.clock, updated.UpdatedAt)

	_, err = suite.auth.UpdateProfile(suite.ctx, suite.stranger, self.UID, &ProfileUpdate{DisplayName: &name})
	suite.assertKind(err, ErrUnauthorized)

	_, err = suite.auth.UpdateProfile(suite.ctx, models.Caller{UID: uuid.New()}, uuid.Nil, &ProfileUpdate{})
	suite.assertKind(err, ErrUnauthorized)
}

func (suite *ServiceTestSuite) TestChangePassword() {
	resp := suite.register("greta@example.com")
	self := models.Caller{UID: resp.User.ID}

	err := suite.auth.ChangePassword(suite.ctx, self, &ChangePasswordRequest{CurrentPassword: "Wrong2025", NewPassword: "Zum2Wohl"})
	suite.assertKind(err, ErrInvalidCredentials)

	suite.Require().NoError(suite.auth.ChangePassword(suite.ctx, self,
		&ChangePasswordRequest{CurrentPassword: "Prost2025", NewPassword: "Zum2Wohl"}))

	_, err = suite.auth.Login(suite.ctx, &LoginRequest{Email: "greta@example.com", Password: "Prost2025"})
	suite.assertKind(err, ErrInvalidCredentials)
	_, err = suite.auth.Login(suite.ctx, &LoginRequest{Email: "greta@example.com", Password: "Zum2Wohl"})
	suite.NoError(err)
}

func (suite *ServiceTestSuite) TestSetAdminClaim() {
	resp := suite.register("greta@example.com")

	_, err := suite.auth.SetAdminClaim(suite.ctx, suite.shopper, resp.User.ID, true)
	suite.assertKind(err, ErrUnauthorized)

	user, err := suite.auth.SetAdminClaim(suite.ctx, suite.adminCaller, resp.User.ID, true)
	suite.Require().NoError(err)
	suite.True(user.IsAdmin)

	login, err := suite.auth.Login(suite.ctx, &LoginRequest{Email: "greta@example.com", Password: "Prost2025"})
	suite.Require().NoError(err)
	caller, err := suite.tokens.Resolve(login.AccessToken)
	suite.Require().NoError(err)
	suite.True(caller.Privileged())

	_, err = suite.auth.SetAdminClaim(suite.ctx, caller, caller.UID, false)
	suite.assertKind(err, ErrValidationFailed)

	_, err = suite.auth.SetAdminClaim(suite.ctx, suite.adminCaller, uuid.New(), true)
	suite.assertKind(err, ErrNotFound)
}

func (suite *ServiceTestSuite) TestCreateAdminUser() {
	req := &RegisterRequest{Email: "wirt@bierstube.example", Password: "Prost2025", DisplayName: "Der Wirt"}

	_, err := suite.auth.CreateAdminUser(suite.ctx, suite.shopper, req)
	suite.assertKind(err, ErrUnauthorized)

	user, err := suite.auth.CreateAdminUser(suite.ctx, models.SystemCaller(), req)
	suite.Require().NoError(err)
	suite.True(user.IsAdmin)
	suite.Equal("Der Wirt", user.DisplayName)

	_, err = suite.auth.CreateAdminUser(suite.ctx, models.SystemCaller(), req)
	suite.assertKind(err, ErrEmailTaken)
}
