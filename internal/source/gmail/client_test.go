package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/source"
)

var (
	sawyer  = model.Operator{Name: "Sawyer Reed", Email: "sawyer@mrwalls.com"}
	inbound = time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	reply   = time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC)
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

const threadListJSON = `{"threads":[{"id":"t1","snippet":"Can you confirm the price?"}]}`

func threadJSON() string {
	return fmt.Sprintf(`{
  "id": "t1",
  "snippet": "Can you confirm the price?",
  "messages": [
    {
      "id": "m1",
      "threadId": "t1",
      "labelIds": ["INBOX", "UNREAD", "IMPORTANT", "Label_7"],
      "internalDate": "%d",
      "payload": {
        "mimeType": "multipart/mixed",
        "headers": [
          {"name": "From", "value": "Marcus Aurelius <m.aurelius@design.com>"},
          {"name": "Subject", "value": "Lobby panel pricing"}
        ],
        "parts": [
          {"mimeType": "text/plain", "body": {"data": %q}},
          {"mimeType": "application/pdf", "filename": "quote.pdf", "body": {"attachmentId": "a1"}}
        ]
      }
    },
    {
      "id": "m2",
      "threadId": "t1",
      "labelIds": ["SENT"],
      "internalDate": "%d",
      "payload": {
        "mimeType": "text/html",
        "headers": [
          {"name": "From", "value": "Sawyer Reed <sawyer@mrwalls.com>"},
          {"name": "Subject", "value": "Re: Lobby panel pricing"}
        ],
        "body": {"data": %q}
      }
    }
  ]
}`, inbound.UnixMilli(), b64("Sawyer, can you confirm the price?"),
		reply.UnixMilli(), b64("<p>Confirmed, $42/sqft.</p>"))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	srv, err := gmail.NewService(context.Background(),
		option.WithHTTPClient(ts.Client()),
		option.WithEndpoint(ts.URL+"/"),
	)
	if err != nil {
		t.Fatalf("creating gmail service: %v", err)
	}
	return NewClientWithService(srv, sawyer, nil)
}

func TestFetchThreads(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/gmail/v1/users/me/threads":
			fmt.Fprint(w, threadListJSON)
		case "/gmail/v1/users/me/threads/t1":
			fmt.Fprint(w, threadJSON())
		default:
			http.NotFound(w, r)
		}
	})

	threads, err := c.FetchThreads(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchThreads: %v", err)
	}
	if len(threads) != 1 {
		t.Fatalf("threads = %d, want 1", len(threads))
	}

	th := threads[0]
	if th.Subject != "Lobby panel pricing" {
		t.Errorf("subject = %q", th.Subject)
	}
	if th.FromName != "Marcus Aurelius" || th.FromEmail != "m.aurelius@design.com" {
		t.Errorf("from = %q <%s>", th.FromName, th.FromEmail)
	}
	if !th.LastInboundAt.Equal(inbound) {
		t.Errorf("lastInboundAt = %v, want %v", th.LastInboundAt, inbound)
	}
	if th.LastOutboundAt == nil || !th.LastOutboundAt.Equal(reply) {
		t.Errorf("lastOutboundAt = %v, want %v", th.LastOutboundAt, reply)
	}
	if !th.Flagged || !th.Unread || !th.HasAttachments {
		t.Errorf("flags: flagged=%v unread=%v attachments=%v", th.Flagged, th.Unread, th.HasAttachments)
	}
	if len(th.Labels) != 1 || th.Labels[0] != "Label_7" {
		t.Errorf("labels = %v", th.Labels)
	}
	if th.MessageCount != 2 || len(th.Messages) != 2 {
		t.Fatalf("messages = %d/%d", th.MessageCount, len(th.Messages))
	}
	if th.Messages[0].Body != "Sawyer, can you confirm the price?" || th.Messages[0].Outbound {
		t.Errorf("first message = %+v", th.Messages[0])
	}
	if th.Messages[1].Body != "Confirmed, $42/sqft." || !th.Messages[1].Outbound {
		t.Errorf("second message = %+v", th.Messages[1])
	}
}

func TestFetchThreadsSkipsOutboundOnly(t *testing.T) {
	selfSent := fmt.Sprintf(`{
  "id": "t2",
  "messages": [
    {
      "id": "m3",
      "threadId": "t2",
      "labelIds": ["INBOX", "SENT"],
      "internalDate": "%d",
      "payload": {
        "mimeType": "text/plain",
        "headers": [
          {"name": "From", "value": "Sawyer Reed <sawyer@mrwalls.com>"},
          {"name": "Subject", "value": "Note to self: lobby measurements"}
        ],
        "body": {"data": %q}
      }
    }
  ]
}`, reply.UnixMilli(), b64("Measure the north wall again."))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/gmail/v1/users/me/threads":
			fmt.Fprint(w, `{"threads":[{"id":"t1"},{"id":"t2"}]}`)
		case "/gmail/v1/users/me/threads/t1":
			fmt.Fprint(w, threadJSON())
		case "/gmail/v1/users/me/threads/t2":
			fmt.Fprint(w, selfSent)
		default:
			http.NotFound(w, r)
		}
	})

	threads, err := c.FetchThreads(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchThreads: %v", err)
	}
	if len(threads) != 1 || threads[0].ID != "t1" {
		t.Fatalf("threads = %+v, want only t1", threads)
	}
}

func TestFetchThreadsAuthError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":401,"message":"Invalid Credentials"}}`)
	})

	_, err := c.FetchThreads(context.Background(), 10)
	if !source.IsAuthError(err) {
		t.Fatalf("err = %v, want AuthError", err)
	}
}

func TestFetchThreadsAllOrNothing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/gmail/v1/users/me/threads" {
			fmt.Fprint(w, `{"threads":[{"id":"t1"},{"id":"t2"}]}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"code":500,"message":"backend error"}}`)
	})

	threads, err := c.FetchThreads(context.Background(), 10)
	if err == nil || threads != nil {
		t.Fatalf("FetchThreads = %v, %v; want nil and an error", threads, err)
	}
	if source.IsAuthError(err) {
		t.Fatal("a server error is not an auth error")
	}
}

func TestParseFrom(t *testing.T) {
	tests := []struct {
		in, name, addr string
	}{
		{"Marcus <m@d.com>", "Marcus", "m@d.com"},
		{"m@d.com", "", "m@d.com"},
		{"<broken", "", "broken"},
		{"", "", ""},
	}
	for _, tt := range tests {
		name, addr := parseFrom(tt.in)
		if name != tt.name || addr != tt.addr {
			t.Errorf("parseFrom(%q) = %q, %q; want %q, %q", tt.in, name, addr, tt.name, tt.addr)
		}
	}
}
