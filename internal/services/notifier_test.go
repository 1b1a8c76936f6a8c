package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloudEventNotifier_SendsEvent(t *testing.T) {
	received := make(chan cloudevents.Event, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1.0", r.Header.Get("ce-specversion"))
		ev := cloudevents.NewEvent()
		ev.SetID(r.Header.Get("ce-id"))
		ev.SetType(r.Header.Get("ce-type"))
		ev.SetSource(r.Header.Get("ce-source"))
		ev.SetSubject(r.Header.Get("ce-subject"))
		received <- ev
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n, err := NewCloudEventNotifier(srv.URL, "scanshare/test")
	require.NoError(t, err)

	n.Notify(context.Background(), Notification{Channel: ChannelResult, OwnerID: "uid-1", Filename: "report.pdf", Title: "Scan finished", Message: "clean"})

	ev := <-received
	assert.Equal(t, "scanshare.notification.scan_result", ev.Type())
	assert.Equal(t, "scanshare/test", ev.Source())
	assert.Equal(t, "uid-1", ev.Subject())
	assert.NotEmpty(t, ev.ID())
}

func TestCloudEventNotifier_SwallowsDeliveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	n, err := NewCloudEventNotifier(url, "scanshare/test")
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		n.Notify(context.Background(), Notification{Channel: ChannelProgress, Filename: "a.txt", Message: "scanning"})
	})
}

func TestNewCloudEventNotifier_RequiresSink(t *testing.T) {
	_, err := NewCloudEventNotifier("", "scanshare/test")
	assert.Error(t, err)
}
