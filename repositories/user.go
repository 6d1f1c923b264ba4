//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	apperrors "guardian-chat/errors"
)

type IUserRepository interface {
	CreateUser(username, hashedPassword string) (string, error)
	GetUserByUsername(username string) (User, error)
}

// User is the persisted account record. The password never leaves the
// auth service in plain form; only the Argon2id hash is stored.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// CreateUser persists the account under "user:{username}" and returns the
// newly generated user id. The username is the uniqueness key.
func (u UserRepository) CreateUser(username, hashedPassword string) (string, error) {
	user := User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		key := []byte("user:" + username)
		_, getErr := txn.Get(key)
		if getErr == nil {
			return apperrors.ErrUserAlreadyExists
		}
		// Only a missing key means the name is free; any other lookup
		// failure must not overwrite an existing account.
		if !errors.Is(getErr, badger.ErrKeyNotFound) {
			return getErr
		}
		return txn.Set(key, data)
	})

	return user.ID, err
}

func (u UserRepository) GetUserByUsername(username string) (User, error) {
	var user User

	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("user:" + username))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})

	if err != nil {
		return User{}, err
	}

	return user, nil
}
