package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"
)

// handlerからusecaseに渡す入力
type LoginInput struct {
	Username string
	Password string
}

// handlerがCookieに詰める値
type LoginOutput struct {
	Username  string    `json:"username"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ユーザー名またはパスワードが違う
var ErrInvalidCredentials = errors.New("invalid credentials")

// 入力不足
var ErrMissingCredentials = errors.New("username and password are required")

// JWTを発行する約束
type TokenIssuer interface {
	Issue(subject string, tokenID string, now time.Time) (token string, expiresAt time.Time, err error)
}

// 入力パスワードと保存したハッシュを比べる約束
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

type IDGenerator interface {
	NewID() string
}

type Clock interface {
	Now() time.Time
}

// 管理者は1人（環境変数で設定）
type Admin struct {
	Username     string
	PasswordHash string
}

type LoginUsecase struct {
	admin    Admin
	verifier PasswordVerifier
	issuer   TokenIssuer
	idGen    IDGenerator
	clock    Clock
}

func NewLoginUsecase(
	admin Admin,
	verifier PasswordVerifier,
	issuer TokenIssuer,
	idGen IDGenerator,
	clock Clock,
) *LoginUsecase {
	return &LoginUsecase{
		admin:    admin,
		verifier: verifier,
		issuer:   issuer,
		idGen:    idGen,
		clock:    clock,
	}
}

// ログイン処理を実行する
func (u *LoginUsecase) Execute(ctx context.Context, in LoginInput) (LoginOutput, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return LoginOutput{}, ErrMissingCredentials
	}

	//ユーザー名が違ってもbcryptは回す（応答時間で区別されないように）
	nameOK := subtle.ConstantTimeCompare([]byte(username), []byte(u.admin.Username)) == 1
	passOK := u.verifier.Verify(in.Password, u.admin.PasswordHash)
	if !nameOK || !passOK {
		return LoginOutput{}, ErrInvalidCredentials
	}

	now := u.clock.Now()
	token, exp, err := u.issuer.Issue(u.admin.Username, u.idGen.NewID(), now)
	if err != nil {
		return LoginOutput{}, err
	}

	return LoginOutput{
		Username:  u.admin.Username,
		Token:     token,
		ExpiresAt: exp,
	}, nil
}
