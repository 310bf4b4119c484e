package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/repository"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/testutil"
	"go.uber.org/zap"
)

func textUpload(name, body string) *Upload {
	return &Upload{Reader: strings.NewReader(body), Filename: name, ContentType: "text/plain", Size: int64(len(body))}
}

func TestCleanFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":             "report.pdf",
		"../../etc/passwd":       "passwd",
		`C:\Users\op\scan 1.png`: "scan_1.png",
		"":                       "file",
		"  ":                     "file",
	}
	for in, want := range cases {
		if got := cleanFilename(in); got != want {
			t.Errorf("cleanFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFileStoreWithoutBlobStore(t *testing.T) {
	svc := NewFileService(nil, nil, zap.NewNop())
	_, err := svc.Store(context.Background(), entity.ContextJob, "job-1", textUpload("a.txt", "a"), Actor{}, nil)
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestFileStoreRemovesBlobWhenLinkFails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	blobs := testutil.NewMemoryBlobs()
	svc := NewFileService(repository.NewRepositories(db), blobs, zap.NewNop())

	linkErr := errors.New("owner vanished")
	_, err := svc.Store(context.Background(), entity.ContextJob, "job-1", textUpload("a.txt", "a"), Actor{UserID: "u1"},
		func(ctx context.Context, tx *repository.Repositories, meta *entity.FileMetadata) error {
			return linkErr
		})
	if !errors.Is(err, linkErr) {
		t.Fatalf("expected link error, got %v", err)
	}
	if blobs.Len() != 0 {
		t.Fatalf("expected orphan blob removed, %d left", blobs.Len())
	}
	var n int64
	db.Model(&entity.FileMetadata{}).Count(&n)
	if n != 0 {
		t.Fatalf("expected no metadata rows, got %d", n)
	}
}

func TestFileAttachUnknownMachine(t *testing.T) {
	db := testutil.SetupTestDB(t)
	blobs := testutil.NewMemoryBlobs()
	svc := NewFileService(repository.NewRepositories(db), blobs, zap.NewNop())

	_, err := svc.Attach(context.Background(), entity.ContextMachine, "00000000-0000-0000-0000-000000000001",
		textUpload("manual.txt", "rtfm"), Actor{UserID: "u1"})
	if !errors.Is(err, ErrMachineNotFound) {
		t.Fatalf("expected ErrMachineNotFound, got %v", err)
	}
	if blobs.Len() != 0 {
		t.Fatalf("expected no blobs, got %d", blobs.Len())
	}
}

func TestFileAttachAndOpenJobFile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	blobs := testutil.NewMemoryBlobs()
	svc := NewFileService(repository.NewRepositories(db), blobs, zap.NewNop())
	job := testutil.SeedJob(t, db, "job-files-001", entity.ScheduleGeneral, 1)

	meta, err := svc.Attach(context.Background(), entity.ContextJob, job.ID, textUpload("notes.txt", "hello"), Actor{UserID: "u1", Username: "op"})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if meta.UploaderUsername != "op" || meta.DocumentID == nil || *meta.DocumentID != job.ID {
		t.Fatalf("unexpected metadata %+v", meta)
	}

	files, err := svc.List(context.Background(), entity.ContextJob, job.ID)
	if err != nil || len(files) != 1 {
		t.Fatalf("expected 1 listed file, got %d (%v)", len(files), err)
	}

	if _, _, err := svc.Open(context.Background(), entity.ContextMachine, meta.ID); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected context mismatch to be not found, got %v", err)
	}
	_, obj, err := svc.Open(context.Background(), entity.ContextJob, meta.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer obj.Body.Close()
	if obj.Size != 5 {
		t.Fatalf("expected size 5, got %d", obj.Size)
	}
}
