package user

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

const (
	headerAuthorization = "Authorization"
	headerBearer        = "Bearer"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUserNotFound    = errors.New("user not found")
)

type User struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Email     string `json:"email" db:"email"`
	Image     string `json:"image,omitempty" db:"image"`
	CreatedAt int64  `json:"createdAt" db:"created_at"`
}

type UserRepository interface {
	CreateUser(user *User) error
	GetUserByID(id string) (*User, error)
}

type Config struct {
	JWTSecret          string `mapstructure:"jwt_secret"`
	JWTIssuer          string `mapstructure:"jwt_issuer"`
	JWTExpirationHours int    `mapstructure:"jwt_expiration_hours"`
}

type JWTClaims struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Headers is the read side of a request header set, e.g. *fasthttp.RequestHeader.
type Headers interface {
	Peek(key string) []byte
}
