package user

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

type UserService struct {
	userRepository UserRepository
	config         Config
}

func NewUserService(userRepository UserRepository, config Config) *UserService {
	return &UserService{
		userRepository: userRepository,
		config:         config,
	}
}

// GetSession resolves the signed-in user from request headers.
// Missing or invalid credentials yield ErrUnauthenticated.
func (us *UserService) GetSession(headers Headers) (*User, error) {
	authHeader := headers.Peek(headerAuthorization)
	if len(authHeader) == 0 {
		return nil, fmt.Errorf("%w: missing authorization header", ErrUnauthenticated)
	}

	tokenString, err := extractJWTFromAuthorizationHeader(string(authHeader))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	return us.ValidateJWT(tokenString)
}

func (us *UserService) GenerateJWT(user *User) (string, int64, error) {
	now := time.Now()
	expiresAt := now.Add(time.Duration(us.config.JWTExpirationHours) * time.Hour)

	claims := JWTClaims{
		Name:    user.Name,
		Email:   user.Email,
		Picture: user.Image,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    us.config.JWTIssuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(us.config.JWTSecret))
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresAt.Unix(), nil
}

func (us *UserService) ValidateJWT(tokenString string) (*User, error) {
	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if us.config.JWTIssuer != "" {
		options = append(options, jwt.WithIssuer(us.config.JWTIssuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(us.config.JWTSecret), nil
	}, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}

	user, err := us.userRepository.GetUserByID(claims.Subject)
	if errors.Is(err, ErrUserNotFound) && claims.Email != "" {
		user, err = us.provision(claims)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return user, nil
}

// provision stores the identity carried by a token issued for a user this
// server has not seen yet.
func (us *UserService) provision(claims *JWTClaims) (*User, error) {
	user := &User{
		ID:        claims.Subject,
		Name:      claims.Name,
		Email:     claims.Email,
		Image:     claims.Picture,
		CreatedAt: time.Now().Unix(),
	}
	if err := us.userRepository.CreateUser(user); err != nil {
		return nil, err
	}
	log.Info().Str("userId", user.ID).Msg("User provisioned from token")
	return user, nil
}

func (us *UserService) GetUser(id string) (*User, error) {
	return us.userRepository.GetUserByID(id)
}

func extractJWTFromAuthorizationHeader(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != headerBearer {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}
