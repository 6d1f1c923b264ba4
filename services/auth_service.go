//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"fmt"

	"guardian-chat/auth"
	"guardian-chat/errors"
	"guardian-chat/repositories"
)

type IAuthService interface {
	Login(username, password string) (Token, error)
	Register(username, password string) (Token, error)
}

type AuthService struct {
	userRepository repositories.IUserRepository
	tokens         *auth.TokenManager
	hasher         auth.Argon2Params
}

type Token string

func NewAuthService(repo repositories.IUserRepository, tokens *auth.TokenManager, hasher auth.Argon2Params) IAuthService {
	return &AuthService{userRepository: repo, tokens: tokens, hasher: hasher}
}

func (s *AuthService) Register(username, password string) (Token, error) {
	valReq := auth.RegisterRequest{
		Username: username,
		Password: password,
	}

	// 1. Validate business rules (username format, password complexity)
	// We check this before any expensive cryptographic operation.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// 2. Hash the password using Argon2id
	// Done in the service layer to keep the repository unaware of plain passwords.
	hashedPassword, err := s.hasher.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Persist the user with the generated hash
	if _, err = s.userRepository.CreateUser(username, hashedPassword); err != nil {
		return "", err // Will propagate ErrUserAlreadyExists if the name is taken
	}

	// 4. Generate the initial session token
	token, err := s.tokens.Generate(username)
	if err != nil {
		return "", err
	}

	return Token(token), nil
}

func (s *AuthService) Login(username, password string) (Token, error) {
	// 1. Retrieve the account from storage
	user, err := s.userRepository.GetUserByUsername(username)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return "", errors.ErrInvalidCredentials
	}

	// 2. Compare the provided password with the stored hash
	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	// 3. Issue the session token
	token, err := s.tokens.Generate(user.Username)
	if err != nil {
		return "", err
	}

	return Token(token), nil
}
