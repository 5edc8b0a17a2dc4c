package server

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	signatureHeader       = "X-Hub-Signature"
	signatureHeaderSHA256 = "X-Hub-Signature-256"
)

// requireSignature rejects POST bodies whose X-Hub-Signature HMAC does not
// match the configured app secret. The body is restored for the handler.
func requireSignature(appSecret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable_body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !signatureMatches(appSecret, body, c.GetHeader(signatureHeaderSHA256), sha256.New) &&
			!signatureMatches(appSecret, body, c.GetHeader(signatureHeader), sha1.New) {
			logger.Warn("webhook signature rejected", zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid_signature"})
			return
		}
		c.Next()
	}
}

func signatureMatches(appSecret string, body []byte, header string, algorithm func() hash.Hash) bool {
	method, digest, found := strings.Cut(header, "=")
	if !found || method == "" || digest == "" {
		return false
	}
	mac := hmac.New(algorithm, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(digest))
}
