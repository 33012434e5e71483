package attestation

import (
	"time"

	"github.com/stretchr/testify/mock"
)

// MockTokenIssuer mocks the TokenIssuer interface.
type MockTokenIssuer struct {
	mock.Mock
}

// IssueToken mocks the IssueToken method.
func (m *MockTokenIssuer) IssueToken(subject string, ttl time.Duration, encryptionKey, encryptionSalt string) (string, error) {
	args := m.Called(subject, ttl, encryptionKey, encryptionSalt)
	return args.String(0), args.Error(1)
}
