package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CountUsers returns the number of user records.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	n, err := s.users().CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// UsersByCommunity groups a minter's users by community label. Users with
// no community fall under "Unspecified".
func (s *Store) UsersByCommunity(ctx context.Context, minterID string) ([]CommunityGroup, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "minter_id", Value: minterID}}}},
		{{Key: "$group", Value: bson.D{
			// Missing and empty community labels both land in "Unspecified".
			{Key: "_id", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{
					bson.D{{Key: "$ifNull", Value: bson.A{"$community", ""}}},
					"",
				}}},
				"Unspecified",
				"$community",
			}}}},
			{Key: "wallets", Value: bson.D{{Key: "$addToSet", Value: "$wallet_address"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cur, err := s.users().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("users by community: %w", err)
	}
	defer cur.Close(ctx)

	groups := []CommunityGroup{}
	if err := cur.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("decode community groups: %w", err)
	}
	return groups, nil
}
