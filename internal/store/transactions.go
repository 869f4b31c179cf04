package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertLog appends one entry to the transaction log. Entries are never
// mutated or deleted afterwards.
func (s *Store) InsertLog(ctx context.Context, entry *LogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if _, err := s.transactions().InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

// CountLogs returns the total number of log entries.
func (s *Store) CountLogs(ctx context.Context) (int64, error) {
	n, err := s.transactions().CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count logs: %w", err)
	}
	return n, nil
}

// ProjectHistory returns the newest log entries referencing a project,
// newest first, capped at limit.
func (s *Store) ProjectHistory(ctx context.Context, projectID string, limit int64) ([]LogEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cur, err := s.transactions().Find(ctx, bson.D{{Key: "details.project_id", Value: projectID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("project history: %w", err)
	}
	defer cur.Close(ctx)

	entries := []LogEntry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return entries, nil
}

// IssuancesForWallet returns credit_issuance entries whose destination
// address lowercase-equals the given wallet, newest first.
func (s *Store) IssuancesForWallet(ctx context.Context, wallet string, limit int64) ([]LogEntry, error) {
	filter := bson.D{
		{Key: "type", Value: LogCreditIssuance},
		{Key: "$expr", Value: bson.D{
			{Key: "$eq", Value: bson.A{
				bson.D{{Key: "$toLower", Value: "$details.to_address"}},
				wallet,
			}},
		}},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cur, err := s.transactions().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("issuances for wallet: %w", err)
	}
	defer cur.Close(ctx)

	entries := []LogEntry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode issuances: %w", err)
	}
	return entries, nil
}

// DailyLogCounts buckets log entries by UTC calendar day from the given
// start time. Days with no entries are absent from the result; callers
// zero-fill the gaps.
func (s *Store) DailyLogCounts(ctx context.Context, since time.Time) ([]DayCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "timestamp", Value: bson.D{{Key: "$gte", Value: since}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m-%d"},
				{Key: "date", Value: "$timestamp"},
				{Key: "timezone", Value: "UTC"},
			}}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cur, err := s.transactions().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("daily log counts: %w", err)
	}
	defer cur.Close(ctx)

	counts := []DayCount{}
	if err := cur.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("decode daily counts: %w", err)
	}
	return counts, nil
}
