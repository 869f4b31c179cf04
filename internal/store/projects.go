package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CountProjects returns the number of registered projects.
func (s *Store) CountProjects(ctx context.Context) (int64, error) {
	n, err := s.projects().CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return n, nil
}

// ListProjects returns a page of projects ordered by creation time.
func (s *Store) ListProjects(ctx context.Context, limit, skip int64) ([]Project, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(limit).
		SetSkip(skip)

	cur, err := s.projects().Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer cur.Close(ctx)

	projects := []Project{}
	if err := cur.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	return projects, nil
}

// GetProject returns the project with the given id, or nil when absent.
func (s *Store) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var p Project
	err := s.projects().FindOne(ctx, bson.D{{Key: "project_id", Value: projectID}}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", projectID, err)
	}
	return &p, nil
}

// InsertProject stores a newly registered project.
func (s *Store) InsertProject(ctx context.Context, p *Project) error {
	if _, err := s.projects().InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert project %s: %w", p.ProjectID, err)
	}
	return nil
}

// ApplyBalanceChange atomically updates a project's balance fields with a
// single $inc. Issue adds to total_issued and circulating; retire adds to
// total_retired and subtracts from circulating. Read-modify-write is never
// used here so concurrent updates cannot lose increments.
func (s *Store) ApplyBalanceChange(ctx context.Context, projectID string, amount int64, op string) error {
	var inc bson.D
	switch op {
	case OpIssue:
		inc = bson.D{
			{Key: "balances.total_issued", Value: amount},
			{Key: "balances.circulating", Value: amount},
		}
	case OpRetire:
		inc = bson.D{
			{Key: "balances.total_retired", Value: amount},
			{Key: "balances.circulating", Value: -amount},
		}
	default:
		return fmt.Errorf("unknown balance operation: %s", op)
	}

	res, err := s.projects().UpdateOne(ctx,
		bson.D{{Key: "project_id", Value: projectID}},
		bson.D{{Key: "$inc", Value: inc}},
	)
	if err != nil {
		return fmt.Errorf("update balance for %s: %w", projectID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("project %s not found", projectID)
	}
	return nil
}

// ProjectsForOwner returns projects whose owner_wallet matches the given
// lowercase wallet address.
func (s *Store) ProjectsForOwner(ctx context.Context, wallet string) ([]Project, error) {
	cur, err := s.projects().Find(ctx, bson.D{{Key: "owner_wallet", Value: wallet}})
	if err != nil {
		return nil, fmt.Errorf("projects for owner: %w", err)
	}
	defer cur.Close(ctx)

	projects := []Project{}
	if err := cur.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("decode owner projects: %w", err)
	}
	return projects, nil
}

// SumBalances aggregates issued/retired/circulating totals over all projects.
func (s *Store) SumBalances(ctx context.Context) (*BalanceTotals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total_issued", Value: bson.D{{Key: "$sum", Value: "$balances.total_issued"}}},
			{Key: "total_retired", Value: bson.D{{Key: "$sum", Value: "$balances.total_retired"}}},
			{Key: "circulating", Value: bson.D{{Key: "$sum", Value: "$balances.circulating"}}},
		}}},
	}

	cur, err := s.projects().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("sum balances: %w", err)
	}
	defer cur.Close(ctx)

	var totals []BalanceTotals
	if err := cur.All(ctx, &totals); err != nil {
		return nil, fmt.Errorf("decode balance totals: %w", err)
	}
	if len(totals) == 0 {
		return &BalanceTotals{}, nil
	}
	return &totals[0], nil
}
