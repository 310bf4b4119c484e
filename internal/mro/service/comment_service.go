package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/repository"
	"github.com/google/uuid"
)

const defaultCommentPageSize = 10

// CommentService 评论服务
type CommentService struct {
	repos    *repository.Repositories
	pageSize int
}

func NewCommentService(repos *repository.Repositories, pageSize int) *CommentService {
	if pageSize <= 0 {
		pageSize = defaultCommentPageSize
	}
	return &CommentService{repos: repos, pageSize: pageSize}
}

// CommentNode 评论树节点
type CommentNode struct {
	entity.Comment
	Replies []*CommentNode `json:"replies"`
}

// CommentPage is one page of top-level threads.
type CommentPage struct {
	Comments   []*CommentNode `json:"comments"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	Total      int            `json:"total"`
}

type CreateCommentRequest struct {
	Text     string  `json:"text" binding:"required,max=5000"`
	ParentID *string `json:"parent_id"`
}

// BuildCommentTree links comments to their parents. A comment whose parent is
// not in the set is treated as top level, and so is the first comment of a
// parent cycle, which would otherwise be unreachable. Top-level threads are
// newest first, replies oldest first at every depth.
func BuildCommentTree(comments []entity.Comment) []*CommentNode {
	nodes := make(map[string]*CommentNode, len(comments))
	for _, c := range comments {
		nodes[c.ID] = &CommentNode{Comment: c, Replies: []*CommentNode{}}
	}

	roots := make([]*CommentNode, 0)
	for _, c := range comments {
		node := nodes[c.ID]
		if c.ParentID != nil && *c.ParentID != c.ID {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	reached := make(map[string]bool, len(comments))
	for _, root := range roots {
		markReached(root, reached)
	}
	for _, c := range comments {
		if reached[c.ID] {
			continue
		}
		node := nodes[c.ID]
		parent := nodes[*c.ParentID]
		parent.Replies = removeNode(parent.Replies, node)
		roots = append(roots, node)
		markReached(node, reached)
	}

	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].Timestamp.After(roots[j].Timestamp)
	})
	for _, root := range roots {
		sortReplies(root, map[string]bool{})
	}
	return roots
}

func markReached(node *CommentNode, reached map[string]bool) {
	if reached[node.ID] {
		return
	}
	reached[node.ID] = true
	for _, r := range node.Replies {
		markReached(r, reached)
	}
}

func removeNode(nodes []*CommentNode, target *CommentNode) []*CommentNode {
	out := nodes[:0]
	for _, n := range nodes {
		if n != target {
			out = append(out, n)
		}
	}
	return out
}

func sortReplies(node *CommentNode, seen map[string]bool) {
	if seen[node.ID] {
		return
	}
	seen[node.ID] = true
	sort.SliceStable(node.Replies, func(i, j int) bool {
		return node.Replies[i].Timestamp.Before(node.Replies[j].Timestamp)
	})
	for _, r := range node.Replies {
		sortReplies(r, seen)
	}
}

// Paginate slices top-level threads. Pages start at 1; out of range pages are empty.
func Paginate(roots []*CommentNode, page, pageSize int) *CommentPage {
	if page < 1 {
		page = 1
	}
	total := len(roots)
	totalPages := (total + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	items := []*CommentNode{}
	if start < total {
		end := start + pageSize
		if end > total {
			end = total
		}
		items = roots[start:end]
	}
	return &CommentPage{Comments: items, Page: page, TotalPages: totalPages, Total: total}
}

// List 评论列表（分页）
func (s *CommentService) List(ctx context.Context, commentContext, documentID string, page int) (*CommentPage, error) {
	comments, err := s.repos.Comment.ListByDocument(ctx, commentContext, documentID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return Paginate(BuildCommentTree(comments), page, s.pageSize), nil
}

// Create 发表评论或回复
func (s *CommentService) Create(ctx context.Context, actor Actor, commentContext, documentID string, req *CreateCommentRequest) (*entity.Comment, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment text is required", ErrInvalidInput)
	}
	if err := s.documentExists(ctx, commentContext, documentID); err != nil {
		return nil, err
	}

	var parentID *string
	if req.ParentID != nil && strings.TrimSpace(*req.ParentID) != "" {
		parent, err := s.repos.Comment.FindByID(ctx, strings.TrimSpace(*req.ParentID))
		if err != nil {
			return nil, notFound(err, ErrParentNotFound)
		}
		if parent.DocumentID != documentID || parent.Context != commentContext {
			return nil, ErrParentNotFound
		}
		parentID = &parent.ID
	}

	comment := &entity.Comment{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		Context:    commentContext,
		ParentID:   parentID,
		Text:       text,
		UserID:     actor.UserID,
		Username:   actor.Username,
		Timestamp:  time.Now(),
	}
	if err := s.repos.Comment.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

func (s *CommentService) documentExists(ctx context.Context, commentContext, documentID string) error {
	switch commentContext {
	case entity.ContextJob:
		if _, err := s.repos.Job.FindByID(ctx, documentID); err != nil {
			return notFound(err, ErrJobNotFound)
		}
	case entity.ContextMachine:
		if _, err := s.repos.Machine.FindByID(ctx, documentID); err != nil {
			return notFound(err, ErrMachineNotFound)
		}
	default:
		return fmt.Errorf("%w: unknown comment context %q", ErrInvalidInput, commentContext)
	}
	return nil
}
