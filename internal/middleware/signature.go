package middleware

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/quizbeat/api/pkg/response"
)

// SignatureHeader carries the queue provider's delivery signature.
const SignatureHeader = "Upstash-Signature"

// SignatureMiddleware verifies that a worker delivery was signed by
// the queue service: the header holds an HS256 JWT over the shared
// queue token whose body claim is the base64url SHA-256 of the
// request body.
type SignatureMiddleware struct {
	queueToken string
}

type signatureClaims struct {
	Body string `json:"body"`
	jwt.RegisteredClaims
}

func NewSignatureMiddleware(queueToken string) *SignatureMiddleware {
	return &SignatureMiddleware{queueToken: queueToken}
}

// Verify rejects unsigned or tampered deliveries.
func (m *SignatureMiddleware) Verify() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Get(SignatureHeader)
		if tokenString == "" {
			return response.Unauthorized(c, "Missing signature header")
		}

		token, err := jwt.ParseWithClaims(tokenString, &signatureClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(m.queueToken), nil
		})
		if err != nil {
			return response.Unauthorized(c, "Invalid signature")
		}

		claims, ok := token.Claims.(*signatureClaims)
		if !ok || !token.Valid {
			return response.Unauthorized(c, "Invalid signature claims")
		}

		if claims.Body != bodyDigest(c.Body()) {
			return response.Unauthorized(c, "Signature body mismatch")
		}

		return c.Next()
	}
}

// Sign produces the signature for a body (useful for testing and for
// local queue deliveries).
func (m *SignatureMiddleware) Sign(body []byte) (string, error) {
	claims := signatureClaims{
		Body: bodyDigest(body),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "quizbeat-queue",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.queueToken))
}

func bodyDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
