package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/repository"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/testutil"
)

func strPtr(s string) *string { return &s }

func TestBuildCommentTreeTreatsOrphansAsTopLevel(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	comments := []entity.Comment{
		{ID: "A", Text: "first", Timestamp: base},
		{ID: "B", ParentID: strPtr("A"), Text: "reply", Timestamp: base.Add(time.Minute)},
		{ID: "C", ParentID: strPtr("missing"), Text: "orphan", Timestamp: base.Add(2 * time.Minute)},
	}

	roots := BuildCommentTree(comments)
	if len(roots) != 2 {
		t.Fatalf("expected 2 top-level comments, got %d", len(roots))
	}
	if roots[0].ID != "C" || roots[1].ID != "A" {
		t.Fatalf("expected newest first [C A], got [%s %s]", roots[0].ID, roots[1].ID)
	}
	if len(roots[1].Replies) != 1 || roots[1].Replies[0].ID != "B" {
		t.Fatalf("expected A to hold reply B, got %+v", roots[1].Replies)
	}
	if len(roots[0].Replies) != 0 {
		t.Fatalf("expected orphan without replies")
	}
}

func TestBuildCommentTreeBreaksParentCycles(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	comments := []entity.Comment{
		{ID: "A", ParentID: strPtr("B"), Text: "loop a", Timestamp: base},
		{ID: "B", ParentID: strPtr("A"), Text: "loop b", Timestamp: base.Add(time.Minute)},
		{ID: "D", Text: "plain", Timestamp: base.Add(2 * time.Minute)},
	}

	roots := BuildCommentTree(comments)
	if len(roots) != 2 {
		t.Fatalf("expected 2 top-level comments, got %d", len(roots))
	}
	if roots[0].ID != "D" || roots[1].ID != "A" {
		t.Fatalf("expected [D A], got [%s %s]", roots[0].ID, roots[1].ID)
	}
	if len(roots[1].Replies) != 1 || roots[1].Replies[0].ID != "B" {
		t.Fatalf("expected A to hold B, got %+v", roots[1].Replies)
	}
	if len(roots[1].Replies[0].Replies) != 0 {
		t.Fatalf("expected B to no longer hold A")
	}
}

func TestBuildCommentTreeOrdersRepliesOldestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	comments := []entity.Comment{
		{ID: "root", Timestamp: base},
		{ID: "late", ParentID: strPtr("root"), Timestamp: base.Add(3 * time.Minute)},
		{ID: "early", ParentID: strPtr("root"), Timestamp: base.Add(time.Minute)},
		{ID: "deep", ParentID: strPtr("early"), Timestamp: base.Add(5 * time.Minute)},
	}

	roots := BuildCommentTree(comments)
	if len(roots) != 1 {
		t.Fatalf("expected 1 root, got %d", len(roots))
	}
	replies := roots[0].Replies
	if len(replies) != 2 || replies[0].ID != "early" || replies[1].ID != "late" {
		t.Fatalf("expected replies [early late], got %+v", replies)
	}
	if len(replies[0].Replies) != 1 || replies[0].Replies[0].ID != "deep" {
		t.Fatalf("expected nested reply under early")
	}
}

func TestPaginate(t *testing.T) {
	roots := make([]*CommentNode, 25)
	for i := range roots {
		roots[i] = &CommentNode{Comment: entity.Comment{ID: fmt.Sprintf("c%d", i)}}
	}

	page := Paginate(roots, 3, 10)
	if len(page.Comments) != 5 || page.TotalPages != 3 || page.Total != 25 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Comments[0].ID != "c20" {
		t.Fatalf("expected page 3 to start at c20, got %s", page.Comments[0].ID)
	}
	if empty := Paginate(roots, 4, 10); len(empty.Comments) != 0 {
		t.Fatalf("expected empty page past the end")
	}
	if first := Paginate(roots, 0, 10); first.Page != 1 || len(first.Comments) != 10 {
		t.Fatalf("expected page 0 to read as page 1")
	}
}

func TestCommentCreateRequiresParentInSameDocument(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewCommentService(repos, 10)
	ctx := context.Background()
	actor := Actor{UserID: "test-user", Username: "Tester"}

	jobA := testutil.SeedJob(t, db, "job-a", entity.ScheduleGeneral, 1)
	jobB := testutil.SeedJob(t, db, "job-b", entity.ScheduleGeneral, 2)

	top, err := svc.Create(ctx, actor, entity.ContextJob, jobA.ID, &CreateCommentRequest{Text: "looks good"})
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if _, err := svc.Create(ctx, actor, entity.ContextJob, jobA.ID, &CreateCommentRequest{Text: "agreed", ParentID: &top.ID}); err != nil {
		t.Fatalf("create reply: %v", err)
	}

	_, err = svc.Create(ctx, actor, entity.ContextJob, jobB.ID, &CreateCommentRequest{Text: "wrong thread", ParentID: &top.ID})
	if !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("expected ErrParentNotFound, got %v", err)
	}
	_, err = svc.Create(ctx, actor, entity.ContextJob, "job-missing", &CreateCommentRequest{Text: "nobody home"})
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}

	page, err := svc.List(ctx, entity.ContextJob, jobA.ID, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || len(page.Comments[0].Replies) != 1 {
		t.Fatalf("expected one thread with one reply, got %+v", page)
	}
}
