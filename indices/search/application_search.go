package search

import (
	"approvalflow/authority"
	"approvalflow/client/es"
	"approvalflow/indices"
	"approvalflow/session"
	"encoding/json"
	"fmt"

	"github.com/fundwit/go-commons/types"
)

var (
	SearchApplicationsFunc = SearchApplications

	MaxSearchSize = 1000
)

type ApplicationQuery struct {
	Keyword         string   `form:"keyword"`
	WorkflowID      types.ID `form:"workflowId"`
	OverallProgress []string `form:"overallProgress"`
	IsDraft         *bool    `form:"isDraft"`
}

// visibilityFilter limits the hits to applications of the user, plus those of the assignments where the user may
// view any application. It returns nil when everything is visible.
func visibilityFilter(s *session.Session) es.H {
	if s.Perms.HasRole(authority.SystemAdmin) ||
		s.Perms.HasRole(authority.Scoped(authority.CapViewApplicationAny, authority.ScopeAll)) {
		return nil
	}

	should := []es.H{
		{"term": es.H{"applicantId": s.Identity.ID.String()}},
		{"term": es.H{"ownerId": s.Identity.ID.String()}},
	}
	if scopes := s.Perms.Scopes(authority.CapViewApplicationAny); len(scopes) > 0 {
		should = append(should, es.H{"terms": es.H{"assignmentId": scopes}})
	}
	return es.H{"bool": es.H{"should": should, "minimum_should_match": 1}}
}

// SearchApplications queries the application index, newest first.
func SearchApplications(q ApplicationQuery, s *session.Session) ([]indices.ApplicationDocument, error) {
	if s.Identity.ID == 0 && !s.Perms.HasRole(authority.SystemAdmin) {
		return []indices.ApplicationDocument{}, nil
	}

	filters := make([]es.H, 0, 5)
	if visibility := visibilityFilter(s); visibility != nil {
		filters = append(filters, visibility)
	}
	if q.Keyword != "" {
		filters = append(filters, es.H{"bool": es.H{"should": []es.H{
			{"match": es.H{"title": es.H{"query": q.Keyword, "operator": "AND"}}},
			{"prefix": es.H{"idNumber": q.Keyword}},
		}, "minimum_should_match": 1}})
	}
	if q.WorkflowID != 0 {
		filters = append(filters, es.H{"term": es.H{"workflowId": q.WorkflowID.String()}})
	}
	if len(q.OverallProgress) > 0 {
		filters = append(filters, es.H{"terms": es.H{"overallProgress": q.OverallProgress}})
	}
	if q.IsDraft != nil {
		filters = append(filters, es.H{"term": es.H{"isDraft": *q.IsDraft}})
	}

	root := es.H{"bool": es.H{"filter": filters}}
	sorts := []es.H{{"createTime": es.H{"order": "desc"}}}
	r, err := es.SearchFunc(s.Ctx(), indices.ApplicationIndexName, es.H{"size": MaxSearchSize, "query": root, "sort": sorts})
	if err != nil {
		return nil, err
	}

	docs := make([]indices.ApplicationDocument, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		doc := indices.ApplicationDocument{}
		if err := json.Unmarshal([]byte(hit.Source), &doc); err != nil {
			return nil, fmt.Errorf("decode application document %s: %w", hit.Id, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
