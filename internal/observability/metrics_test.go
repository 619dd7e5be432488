package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/ashwnsri/sonic-platform-common/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("Ethernet0", "GET", "/api/transceiver/info", 200, 12*time.Millisecond)
	RecordDriverQuery("Ethernet0", "info", nil, 8*time.Millisecond)
	RecordDriverQuery("Ethernet0", "dom", errors.New("read fault"), 3*time.Millisecond)
}
