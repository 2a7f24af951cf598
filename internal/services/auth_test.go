package services

import (
	"github.com/tradebook/tradebook-backend/internal/config"
	"github.com/tradebook/tradebook-backend/internal/models"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

func (s *ServiceTestSuite) newAuth() (*AuthService, *UserService) {
	return NewAuthService(s.db, config.JWTConfig{AccessTokenTTL: 1, RefreshTokenTTL: 24}), NewUserService(s.db)
}

func (s *ServiceTestSuite) TestLoginAndRefresh() {
	auth, users := s.newAuth()
	user, err := users.CreateUser(s.ctx, &CreateUserRequest{
		Email:    "Clerk@Example.com",
		Name:     "Clerk",
		Password: "counter-top",
		Role:     models.UserRoleStaff,
	})
	s.Require().NoError(err)
	s.Equal("clerk@example.com", user.Email)

	resp, err := auth.Login(s.ctx, &LoginRequest{Email: "clerk@example.com", Password: "counter-top"})
	s.Require().NoError(err)
	s.Equal("Bearer", resp.TokenType)
	s.Equal(3600, resp.ExpiresIn)
	s.NotNil(resp.User.LastLoginAt)

	claims, err := utils.ValidateJWT(resp.AccessToken)
	s.Require().NoError(err)
	s.Equal(user.ID, claims.UserID)
	s.Equal("staff", claims.Role)

	refreshed, err := auth.RefreshToken(s.ctx, resp.RefreshToken)
	s.Require().NoError(err)
	s.Equal(user.ID, refreshed.User.ID)

	_, err = auth.RefreshToken(s.ctx, resp.AccessToken)
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceTestSuite) TestLoginFailures() {
	auth, users := s.newAuth()
	user, err := users.CreateUser(s.ctx, &CreateUserRequest{Email: "a@example.com", Name: "A", Password: "long-enough", Role: models.UserRoleAdmin})
	s.Require().NoError(err)

	_, err = auth.Login(s.ctx, &LoginRequest{Email: "a@example.com", Password: "wrong-one"})
	s.ErrorIs(err, ErrInvalidCredentials)

	_, err = auth.Login(s.ctx, &LoginRequest{Email: "nobody@example.com", Password: "long-enough"})
	s.ErrorIs(err, ErrInvalidCredentials)

	other, err := users.CreateUser(s.ctx, &CreateUserRequest{Email: "b@example.com", Name: "B", Password: "long-enough", Role: models.UserRoleAdmin})
	s.Require().NoError(err)
	_, err = users.SetActive(s.ctx, other.ID, user.ID, false)
	s.Require().NoError(err)

	_, err = auth.Login(s.ctx, &LoginRequest{Email: "a@example.com", Password: "long-enough"})
	s.ErrorIs(err, ErrAccountDisabled)
}

func (s *ServiceTestSuite) TestUserAdministration() {
	_, users := s.newAuth()
	admin, err := users.CreateUser(s.ctx, &CreateUserRequest{Email: "root@example.com", Name: "Root", Password: "long-enough", Role: models.UserRoleAdmin})
	s.Require().NoError(err)

	_, err = users.CreateUser(s.ctx, &CreateUserRequest{Email: "root@example.com", Name: "Again", Password: "long-enough", Role: models.UserRoleStaff})
	s.ErrorIs(err, ErrDuplicate)

	_, err = users.CreateUser(s.ctx, &CreateUserRequest{Email: "short@example.com", Name: "Short", Password: "short", Role: models.UserRoleStaff})
	s.Error(err)

	_, err = users.SetActive(s.ctx, admin.ID, admin.ID, false)
	s.ErrorIs(err, ErrForbidden)

	_, err = users.SetActive(s.ctx, admin.ID, 4242, false)
	s.ErrorIs(err, ErrNotFound)

	list, total, err := users.ListUsers(s.ctx, UserSearchParams{Role: models.UserRoleAdmin})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal("root@example.com", list[0].Email)
}
