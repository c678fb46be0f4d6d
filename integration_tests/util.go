package integration_tests

import (
	"log"

	"github.com/amslabs/assethub.go/lib/service"
	"github.com/rs/zerolog"
)

var testSecret = []byte("assethub-integration-secret")

// newTestService builds a dashboard session for userID against the mock
// ledger, with a fast reconnect so bridge tests do not crawl.
func newTestService(ml *mockLedger, userID string) *service.AssethubService {
	c := &service.Config{
		LedgerUrl:               ml.URL(),
		LedgerWsUrl:             ml.WsURL(),
		AccessToken:             ml.token(userID, "CITIZEN"),
		HTTPTimeoutSeconds:      10,
		RefreshIntervalSeconds:  30,
		ReconnectBackoffSeconds: 1,
	}
	svc, err := service.NewAssethubService(c, zerolog.Nop())
	if err != nil {
		log.Fatalf("Error initializing test service: %v", err)
	}
	return svc
}
