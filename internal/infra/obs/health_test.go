package obs

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestReadyzReflectsProbe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var failing atomic.Bool
	h := HealthHandlers{Ready: func(context.Context) error {
		if failing.Load() {
			return errors.New("store down")
		}
		return nil
	}}
	r := gin.New()
	r.GET("/livez", h.Livez)
	r.GET("/readyz", h.Readyz)

	for _, tc := range []struct {
		path string
		fail bool
		want int
	}{
		{"/livez", true, http.StatusOK},
		{"/readyz", false, http.StatusOK},
		{"/readyz", true, http.StatusServiceUnavailable},
	} {
		failing.Store(tc.fail)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		assert.Equal(t, tc.want, w.Code, tc.path)
	}
}

func TestGRPCHealthFollowsReadiness(t *testing.T) {
	var failing atomic.Bool
	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	srv := &HealthServer{
		Interval: 10 * time.Millisecond,
		Ready: func(context.Context) error {
			if failing.Load() {
				return errors.New("store down")
			}
			return nil
		},
	}
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	status := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			return healthpb.HealthCheckResponse_UNKNOWN
		}
		return resp.GetStatus()
	}

	require.Eventually(t, func() bool { return status(ServiceName) == healthpb.HealthCheckResponse_SERVING }, time.Second, 10*time.Millisecond)
	failing.Store(true)
	require.Eventually(t, func() bool { return status("") == healthpb.HealthCheckResponse_NOT_SERVING }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("health server did not stop")
	}
}
