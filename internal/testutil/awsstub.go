package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// AWSStub is an HTTP server answering STS AssumeRole and S3 HeadObject
// requests, for checking that custom endpoints reach both services.
type AWSStub struct {
	*httptest.Server

	// ObjectSize is the Content-Length returned for every HeadObject
	ObjectSize int64

	mu        sync.Mutex
	stsCalls  int
	headPaths []string
}

// NewAWSStub starts a stub server that is closed when the test ends.
func NewAWSStub(t *testing.T) *AWSStub {
	t.Helper()

	stub := &AWSStub{ObjectSize: 42}
	stub.Server = httptest.NewServer(http.HandlerFunc(stub.serve))
	t.Cleanup(stub.Close)
	return stub
}

// STSCalls returns how many AssumeRole requests arrived.
func (s *AWSStub) STSCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stsCalls
}

// HeadPaths returns the request paths of every HeadObject call, in order.
func (s *AWSStub) HeadPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.headPaths...)
}

func (s *AWSStub) serve(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "Action=AssumeRole") {
			http.Error(w, "unsupported action", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.stsCalls++
		s.mu.Unlock()

		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprintf(w, assumeRoleResponse, time.Now().Add(time.Hour).UTC().Format(time.RFC3339))

	case http.MethodHead:
		s.mu.Lock()
		s.headPaths = append(s.headPaths, r.URL.Path)
		s.mu.Unlock()

		w.Header().Set("Content-Length", strconv.FormatInt(s.ObjectSize, 10))
		w.Header().Set("ETag", `"stub"`)
		w.WriteHeader(http.StatusOK)

	default:
		http.Error(w, "unsupported method", http.StatusMethodNotAllowed)
	}
}

const assumeRoleResponse = `<AssumeRoleResponse xmlns="https://sts.amazonaws.com/doc/2011-06-15/">
  <AssumeRoleResult>
    <Credentials>
      <AccessKeyId>ASIASTUBACCESSKEY</AccessKeyId>
      <SecretAccessKey>stub-secret</SecretAccessKey>
      <SessionToken>stub-session-token</SessionToken>
      <Expiration>%s</Expiration>
    </Credentials>
    <AssumedRoleUser>
      <Arn>arn:aws:sts::123456789012:assumed-role/test-reader/assumed-role</Arn>
      <AssumedRoleId>AROASTUB:assumed-role</AssumedRoleId>
    </AssumedRoleUser>
  </AssumeRoleResult>
  <ResponseMetadata>
    <RequestId>00000000-0000-0000-0000-000000000000</RequestId>
  </ResponseMetadata>
</AssumeRoleResponse>`
