// agora/storage/mongo/store.go
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"agora/models"
	"agora/storage"
	"agora/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store implements storage.Store on a MongoDB database. Documents use string
// hex object ids so the handlers and the in-memory store share one id type.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// New connects to the given URI, pings the deployment, and ensures indexes.
func New(ctx context.Context, uri, dbName string, logger *slog.Logger) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &Store{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}
	if err := s.ensureIndexes(connectCtx); err != nil {
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}
	logger.Info("Connected to MongoDB", "database", dbName)
	return s, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) users() *mongo.Collection      { return s.db.Collection("users") }
func (s *Store) sessions() *mongo.Collection   { return s.db.Collection("sessions") }
func (s *Store) categories() *mongo.Collection { return s.db.Collection("categories") }
func (s *Store) posts() *mongo.Collection      { return s.db.Collection("posts") }
func (s *Store) comments() *mongo.Collection   { return s.db.Collection("comments") }

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	_, err := s.users().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
	})
	if err != nil {
		return err
	}
	_, err = s.categories().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
	})
	if err != nil {
		return err
	}
	_, err = s.posts().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "lastActivity", Value: -1}}},
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return err
	}
	_, err = s.comments().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "post", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return err
	}
	// Sessions expire server-side once past their expiration.
	_, err = s.sessions().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

func translateErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return storage.ErrDuplicate
	}
	return err
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

// === Users ===

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = newID()
	if user.JoinDate.IsZero() {
		user.JoinDate = time.Now().UTC()
	}
	if _, err := s.users().InsertOne(ctx, user); err != nil {
		return translateErr(err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.users().FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.users().FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.users().FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	cur, err := s.users().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "joinDate", Value: 1}}))
	if err != nil {
		return nil, err
	}
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := s.users().ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return translateErr(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.users().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	if _, err := s.posts().DeleteMany(ctx, bson.M{"author": id}); err != nil {
		return err
	}
	if _, err := s.comments().DeleteMany(ctx, bson.M{"author": id}); err != nil {
		return err
	}
	if _, err := s.sessions().DeleteMany(ctx, bson.M{"userId": id}); err != nil {
		return err
	}
	return nil
}

// === Sessions ===

func (s *Store) CreateSession(ctx context.Context, session *models.Session) error {
	if _, err := s.sessions().InsertOne(ctx, session); err != nil {
		return translateErr(err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, token string) (*models.Session, error) {
	var session models.Session
	err := s.sessions().FindOne(ctx, bson.M{"_id": token}).Decode(&session)
	if err != nil {
		return nil, translateErr(err)
	}
	return &session, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	res, err := s.sessions().DeleteOne(ctx, bson.M{"_id": token})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// === Categories ===

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	category.ID = newID()
	category.Slug = utils.Slugify(category.Name)
	if _, err := s.categories().InsertOne(ctx, category); err != nil {
		return translateErr(err)
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	err := s.categories().FindOne(ctx, bson.M{"_id": id}).Decode(&category)
	if err != nil {
		return nil, translateErr(err)
	}
	return &category, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	sort := bson.D{{Key: "order", Value: 1}, {Key: "name", Value: 1}}
	cur, err := s.categories().Find(ctx, bson.M{}, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	categories := []models.Category{}
	if err := cur.All(ctx, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) UpdateCategory(ctx context.Context, category *models.Category) error {
	category.Slug = utils.Slugify(category.Name)
	res, err := s.categories().ReplaceOne(ctx, bson.M{"_id": category.ID}, category)
	if err != nil {
		return translateErr(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id, reassignTo string) (int64, error) {
	if _, err := s.GetCategory(ctx, reassignTo); err != nil {
		return 0, err
	}
	res, err := s.posts().UpdateMany(ctx,
		bson.M{"category": id},
		bson.M{"$set": bson.M{"category": reassignTo}},
	)
	if err != nil {
		return 0, err
	}
	del, err := s.categories().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	if del.DeletedCount == 0 {
		return 0, storage.ErrNotFound
	}
	return res.ModifiedCount, nil
}

// === Posts ===

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = newID()
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	post.LastActivity = now
	if post.Tags == nil {
		post.Tags = []string{}
	}
	post.Upvotes = []string{}
	post.Downvotes = []string{}
	if _, err := s.posts().InsertOne(ctx, post); err != nil {
		return translateErr(err)
	}
	return nil
}

func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := s.posts().FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		return nil, translateErr(err)
	}
	return &post, nil
}

func notDeleted() bson.M {
	return bson.M{"isDeleted": bson.M{"$ne": true}}
}

func (s *Store) ListPosts(ctx context.Context, opts storage.ListPostsOptions) ([]models.Post, int64, error) {
	filter := notDeleted()
	if opts.Category != "" {
		filter["category"] = opts.Category
	}
	return s.findPostPage(ctx, filter, opts.Sort, "-lastActivity", opts.Page, opts.Limit)
}

func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string, limit int64) ([]models.Post, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		findOpts.SetLimit(limit)
	}
	cur, err := s.posts().Find(ctx, bson.M{"author": authorID}, findOpts)
	if err != nil {
		return nil, err
	}
	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Store) UpdatePost(ctx context.Context, post *models.Post) error {
	now := time.Now().UTC()
	post.UpdatedAt = now
	post.LastActivity = now
	res, err := s.posts().ReplaceOne(ctx, bson.M{"_id": post.ID}, post)
	if err != nil {
		return translateErr(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) SoftDeletePost(ctx context.Context, id, actorID string) error {
	now := time.Now().UTC()
	res, err := s.posts().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isDeleted": true, "deletedBy": actorID, "deletedAt": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.posts().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	_, err = s.comments().DeleteMany(ctx, bson.M{"post": id})
	return err
}

func (s *Store) IncrementViews(ctx context.Context, id string) error {
	res, err := s.posts().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) VotePost(ctx context.Context, id, voterID, voteType string) (*models.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	change := models.ResolveVote(post.Upvotes, post.Downvotes, voterID, voteType)
	update := voteUpdate(change, voterID)
	update["$set"] = bson.M{"lastActivity": time.Now().UTC()}

	var updated models.Post
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = s.posts().FindOneAndUpdate(ctx, bson.M{"_id": id}, update, after).Decode(&updated)
	if err != nil {
		return nil, translateErr(err)
	}
	return &updated, nil
}

func (s *Store) SearchPosts(ctx context.Context, opts storage.SearchOptions) ([]models.Post, int64, error) {
	filter := notDeleted()
	if opts.Query != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(opts.Query), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"content": re},
			bson.M{"tags": re},
		}
	}
	if opts.Category != "" {
		filter["category"] = opts.Category
	}
	return s.findPostPage(ctx, filter, opts.SortBy, "-createdAt", opts.Page, opts.Limit)
}

func (s *Store) findPostPage(ctx context.Context, filter bson.M, sortKey, fallback string, page, limit int64) ([]models.Post, int64, error) {
	total, err := s.posts().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	field, desc := storage.ParseSort(sortKey, fallback)
	dir := 1
	if desc {
		dir = -1
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: field, Value: dir}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cur, err := s.posts().Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, err
	}
	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// voteUpdate turns a resolved vote transition into a single update document.
// Adds and removals always touch opposite sets, so $addToSet and $pull never
// collide on one field.
func voteUpdate(change models.VoteChange, voterID string) bson.M {
	addToSet := bson.M{}
	pull := bson.M{}
	if change.AddUp {
		addToSet["upvotes"] = voterID
	}
	if change.AddDown {
		addToSet["downvotes"] = voterID
	}
	if change.RemoveUp {
		pull["upvotes"] = voterID
	}
	if change.RemoveDown {
		pull["downvotes"] = voterID
	}
	update := bson.M{}
	if len(addToSet) > 0 {
		update["$addToSet"] = addToSet
	}
	if len(pull) > 0 {
		update["$pull"] = pull
	}
	return update
}

// === Comments ===

func (s *Store) AddComment(ctx context.Context, comment *models.Comment) error {
	comment.ID = newID()
	now := time.Now().UTC()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	comment.Upvotes = []string{}
	comment.Downvotes = []string{}
	if _, err := s.comments().InsertOne(ctx, comment); err != nil {
		return translateErr(err)
	}
	res, err := s.posts().UpdateOne(ctx,
		bson.M{"_id": comment.Post},
		bson.M{"$inc": bson.M{"commentCount": 1}, "$set": bson.M{"lastActivity": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	err := s.comments().FindOne(ctx, bson.M{"_id": id}).Decode(&comment)
	if err != nil {
		return nil, translateErr(err)
	}
	return &comment, nil
}

func (s *Store) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	filter := bson.M{"post": postID, "isDeleted": bson.M{"$ne": true}}
	cur, err := s.comments().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	comments := []models.Comment{}
	if err := cur.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *Store) ListCommentsByAuthor(ctx context.Context, authorID string, limit int64) ([]models.Comment, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		findOpts.SetLimit(limit)
	}
	cur, err := s.comments().Find(ctx, bson.M{"author": authorID}, findOpts)
	if err != nil {
		return nil, err
	}
	comments := []models.Comment{}
	if err := cur.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *Store) UpdateComment(ctx context.Context, comment *models.Comment) error {
	comment.UpdatedAt = time.Now().UTC()
	res, err := s.comments().ReplaceOne(ctx, bson.M{"_id": comment.ID}, comment)
	if err != nil {
		return translateErr(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) SoftDeleteComment(ctx context.Context, id, actorID string) error {
	now := time.Now().UTC()
	// Matching on isDeleted guarantees the parent counter decrements at
	// most once per comment.
	res, err := s.comments().UpdateOne(ctx,
		bson.M{"_id": id, "isDeleted": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"isDeleted": true, "deletedBy": actorID, "deletedAt": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetComment(ctx, id); err != nil {
			return err
		}
		return nil // already tombstoned
	}
	comment, err := s.GetComment(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.posts().UpdateOne(ctx,
		bson.M{"_id": comment.Post},
		bson.M{"$inc": bson.M{"commentCount": -1}},
	)
	return err
}

func (s *Store) VoteComment(ctx context.Context, id, voterID, voteType string) (*models.Comment, error) {
	comment, err := s.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}
	change := models.ResolveVote(comment.Upvotes, comment.Downvotes, voterID, voteType)
	update := voteUpdate(change, voterID)

	var updated models.Comment
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = s.comments().FindOneAndUpdate(ctx, bson.M{"_id": id}, update, after).Decode(&updated)
	if err != nil {
		return nil, translateErr(err)
	}
	return &updated, nil
}

// === Aggregates ===

// Stats runs the six counts concurrently. The day boundary is local
// midnight on the server.
func (s *Store) Stats(ctx context.Context) (*models.Stats, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats := &models.Stats{}
	counts := []struct {
		coll   *mongo.Collection
		filter bson.M
		dest   *int64
	}{
		{s.users(), bson.M{}, &stats.TotalUsers},
		{s.posts(), bson.M{}, &stats.TotalPosts},
		{s.comments(), bson.M{}, &stats.TotalComments},
		{s.users(), bson.M{"joinDate": bson.M{"$gte": midnight}}, &stats.NewUsersToday},
		{s.posts(), bson.M{"createdAt": bson.M{"$gte": midnight}}, &stats.NewPostsToday},
		{s.users(), bson.M{"isBanned": true}, &stats.BannedUsers},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(counts))
	for i, c := range counts {
		wg.Add(1)
		go func(i int, coll *mongo.Collection, filter bson.M, dest *int64) {
			defer wg.Done()
			n, err := coll.CountDocuments(ctx, filter)
			if err != nil {
				errs[i] = err
				return
			}
			*dest = n
		}(i, c.coll, c.filter, c.dest)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return stats, nil
}
