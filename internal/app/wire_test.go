package app

import (
	"testing"

	"github.com/ailabben/dashboard-api/internal/config"
	"github.com/ailabben/dashboard-api/internal/queue"
	"github.com/ailabben/dashboard-api/internal/storage"
)

func TestMemoryWiring(t *testing.T) {
	st, err := OpenStores(config.Config{DBDriver: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if st.Memory == nil || st.DB != nil {
		t.Fatalf("stores = %+v", st)
	}

	rec, closeRec := NewAuditRecorder(config.AuditConfig{Sink: "db"}, st)
	defer closeRec()
	if rec != st.Logs {
		t.Fatal("db sink should record into the log repository")
	}
	qrec, closeQ := NewAuditRecorder(config.AuditConfig{Sink: "queue", AMQPURL: "amqp://localhost:1/"}, st)
	defer closeQ()
	if _, ok := qrec.(*queue.Publisher); !ok {
		t.Fatalf("queue sink = %T", qrec)
	}

	obj, err := NewObjectStore(config.StorageConfig{Driver: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := obj.(*storage.MemoryStore); !ok {
		t.Fatalf("object store = %T", obj)
	}
	if _, err := NewObjectStore(config.StorageConfig{Driver: "s3"}); err == nil {
		t.Fatal("s3 without endpoint accepted")
	}
	if _, err := NewObjectStore(config.StorageConfig{Driver: "ftp"}); err == nil {
		t.Fatal("unknown driver accepted")
	}
}
