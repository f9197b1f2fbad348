package mention

import (
	"context"
	"regexp"

	"github.com/janhq/jan-workspace/internal/utils/platformerrors"
)

// referencePattern matches <@member-id>. The id may not contain whitespace or angle brackets.
var referencePattern = regexp.MustCompile(`<@([^<>\s]+)>`)

// MemberRepository answers batched membership questions for mention resolution.
type MemberRepository interface {
	// FindActiveMemberIDs returns the subset of ids that are active members of the workspace.
	FindActiveMemberIDs(ctx context.Context, workspaceID string, ids []string) ([]string, error)
}

// ExtractMentions returns the distinct member references in body, in order of first appearance.
// Matching is case-sensitive and no lookup is performed.
func ExtractMentions(body string) []string {
	matches := referencePattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		ref := m[1]
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}

// Resolver filters extracted references down to active workspace members.
type Resolver struct {
	repo MemberRepository
}

func NewResolver(repo MemberRepository) *Resolver {
	return &Resolver{repo: repo}
}

// ResolveMentions keeps the references that belong to active members of workspaceID using a
// single batched lookup. Unknown or inactive references are dropped silently. Input order is kept.
func (r *Resolver) ResolveMentions(ctx context.Context, refs []string, workspaceID string) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	found, err := r.repo.FindActiveMemberIDs(ctx, workspaceID, refs)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to resolve mentions")
	}

	valid := make(map[string]struct{}, len(found))
	for _, id := range found {
		valid[id] = struct{}{}
	}

	resolved := make([]string, 0, len(found))
	for _, ref := range refs {
		if _, ok := valid[ref]; ok {
			resolved = append(resolved, ref)
		}
	}
	return resolved, nil
}
