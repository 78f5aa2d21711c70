package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const (
	ticketsCollection    = "tickets"
	identitiesCollection = "identities"
	settingsCollection   = "settings"
	countersCollection   = "counters"

	settingsDocumentID = "global"

	identityEmailIndex = "identities_email_unique"
	// identitySingleAdminIndex admits at most one document with role admin.
	identitySingleAdminIndex = "identities_single_admin"

	// maxMutateAttempts bounds optimistic retries on a contended ticket.
	maxMutateAttempts = 8
)

// NewMongoStore returns repositories backed by a MongoDB database.
func NewMongoStore(db *mongo.Database) Store {
	return Store{
		Tickets:    NewMongoTicketRepository(db),
		Identities: NewMongoIdentityRepository(db),
		Settings:   NewMongoSettingsRepository(db),
	}
}

// EnsureMongoIndexes creates the unique indexes the repositories rely on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(ticketsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "ticket_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "assignee_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	}); err != nil {
		return err
	}
	_, err := db.Collection(identitiesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(identityEmailIndex).SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "role", Value: 1}},
			Options: options.Index().
				SetName(identitySingleAdminIndex).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"role": domain.RoleAdmin}),
		},
	})
	return err
}

// isDuplicateOn reports whether err is a duplicate key violation of index.
func isDuplicateOn(err error, index string) bool {
	return mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), index)
}

type messageDocument struct {
	ID         string            `bson:"id"`
	Sender     string            `bson:"sender"`
	SenderType domain.SenderType `bson:"sender_type"`
	Body       string            `bson:"body"`
	CreatedAt  time.Time         `bson:"created_at"`
}

type ticketDocument struct {
	ID                 string              `bson:"_id"`
	TicketID           string              `bson:"ticket_id"`
	ContactName        string              `bson:"contact_name"`
	ContactEmail       string              `bson:"contact_email"`
	ContactPhone       string              `bson:"contact_phone"`
	Messages           []messageDocument   `bson:"messages"`
	AssigneeID         *string             `bson:"assignee_id"`
	Status             domain.TicketStatus `bson:"status"`
	CreatedAt          time.Time           `bson:"created_at"`
	UpdatedAt          time.Time           `bson:"updated_at"`
	FirstReplyAt       *time.Time          `bson:"first_reply_at"`
	ResolvedAt         *time.Time          `bson:"resolved_at"`
	IsMissedChat       bool                `bson:"is_missed_chat"`
	MissedChatMarkedAt *time.Time          `bson:"missed_chat_marked_at"`
	Version            int64               `bson:"version"`
}

func newTicketDocument(t *domain.Ticket) ticketDocument {
	msgs := make([]messageDocument, 0, len(t.Messages))
	for _, m := range t.Messages {
		msgs = append(msgs, messageDocument{
			ID:         m.ID,
			Sender:     m.Sender,
			SenderType: m.SenderType,
			Body:       m.Body,
			CreatedAt:  m.CreatedAt,
		})
	}
	return ticketDocument{
		ID:                 t.ID,
		TicketID:           t.TicketID,
		ContactName:        t.Contact.Name,
		ContactEmail:       t.Contact.Email,
		ContactPhone:       t.Contact.Phone,
		Messages:           msgs,
		AssigneeID:         t.AssigneeID,
		Status:             t.Status,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
		FirstReplyAt:       t.FirstReplyAt,
		ResolvedAt:         t.ResolvedAt,
		IsMissedChat:       t.IsMissedChat,
		MissedChatMarkedAt: t.MissedChatMarkedAt,
		Version:            t.Version,
	}
}

func (d ticketDocument) toDomain() *domain.Ticket {
	msgs := make([]domain.Message, 0, len(d.Messages))
	for _, m := range d.Messages {
		msgs = append(msgs, domain.Message{
			ID:         m.ID,
			Sender:     m.Sender,
			SenderType: m.SenderType,
			Body:       m.Body,
			CreatedAt:  m.CreatedAt,
		})
	}
	return &domain.Ticket{
		ID:                 d.ID,
		TicketID:           d.TicketID,
		Contact:            domain.ContactInfo{Name: d.ContactName, Email: d.ContactEmail, Phone: d.ContactPhone},
		Messages:           msgs,
		AssigneeID:         d.AssigneeID,
		Status:             d.Status,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
		FirstReplyAt:       d.FirstReplyAt,
		ResolvedAt:         d.ResolvedAt,
		IsMissedChat:       d.IsMissedChat,
		MissedChatMarkedAt: d.MissedChatMarkedAt,
		Version:            d.Version,
	}
}

type counterDocument struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

// incrementCounter bumps a named counter, seeding it with seed() the first
// time it is used.
func incrementCounter(ctx context.Context, db *mongo.Database, name string, seed func(context.Context) (int64, error)) (int64, error) {
	counters := db.Collection(countersCollection)
	err := counters.FindOne(ctx, bson.M{"_id": name}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		initial, seedErr := seed(ctx)
		if seedErr != nil {
			return 0, seedErr
		}
		_, err = counters.UpdateOne(ctx,
			bson.M{"_id": name},
			bson.M{"$setOnInsert": bson.M{"value": initial}},
			options.Update().SetUpsert(true),
		)
		if mongo.IsDuplicateKeyError(err) {
			err = nil
		}
	}
	if err != nil {
		return 0, err
	}

	after := options.After
	var doc counterDocument
	if err := counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": 1}},
		&options.FindOneAndUpdateOptions{ReturnDocument: &after},
	).Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Value, nil
}

type mongoTicketRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

// NewMongoTicketRepository stores each ticket, messages included, as one
// document and guards writes with an optimistic version check.
func NewMongoTicketRepository(db *mongo.Database) TicketRepository {
	return &mongoTicketRepository{db: db, collection: db.Collection(ticketsCollection)}
}

func (r *mongoTicketRepository) NextSequence(ctx context.Context) (int64, error) {
	return incrementCounter(ctx, r.db, ticketSequenceName, r.Count)
}

func (r *mongoTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	assignMessageIDs(ticket.Messages)
	_, err := r.collection.InsertOne(ctx, newTicketDocument(ticket))
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *mongoTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var doc ticketDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *mongoTicketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query := bson.M{}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}
	if filter.AssigneeID != nil {
		query["assignee_id"] = *filter.AssigneeID
	}
	if needle := strings.TrimSpace(filter.TicketIDContains); needle != "" {
		query["ticket_id"] = bson.M{"$regex": regexp.QuoteMeta(needle), "$options": "i"}
	}

	cursor, err := r.collection.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	var docs []ticketDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	result := make([]domain.Ticket, 0, len(docs))
	for _, doc := range docs {
		result = append(result, *doc.toDomain())
	}
	domain.SortTickets(result, filter.SortKey, filter.SortDirection)
	return result, nil
}

// Mutate reloads and retries when another writer bumped the version between
// the read and the replace.
func (r *mongoTicketRepository) Mutate(ctx context.Context, id string, fn MutateFunc) (*domain.Ticket, error) {
	for attempt := 0; attempt < maxMutateAttempts; attempt++ {
		ticket, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		before := append([]domain.Message(nil), ticket.Messages...)
		if err := fn(ticket); err != nil {
			return nil, err
		}
		assignMessageIDs(ticket.Messages)
		if err := checkAppendOnly(before, ticket.Messages); err != nil {
			return nil, err
		}

		expected := ticket.Version
		ticket.Version++
		res, err := r.collection.ReplaceOne(ctx,
			bson.M{"_id": id, "version": expected},
			newTicketDocument(ticket),
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 1 {
			return ticket, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return nil, ErrConcurrentUpdate
}

func (r *mongoTicketRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

type identityDocument struct {
	ID           string      `bson:"_id"`
	Name         string      `bson:"name"`
	Email        string      `bson:"email"`
	PasswordHash string      `bson:"password_hash"`
	Role         domain.Role `bson:"role"`
	Phone        string      `bson:"phone"`
	FirstName    string      `bson:"first_name"`
	LastName     string      `bson:"last_name"`
	Designation  string      `bson:"designation"`
	CreatedAt    time.Time   `bson:"created_at"`
	UpdatedAt    time.Time   `bson:"updated_at"`
}

func newIdentityDocument(i *domain.Identity) identityDocument {
	return identityDocument{
		ID:           i.ID,
		Name:         i.Name,
		Email:        i.Email,
		PasswordHash: i.PasswordHash,
		Role:         i.Role,
		Phone:        i.Phone,
		FirstName:    i.FirstName,
		LastName:     i.LastName,
		Designation:  i.Designation,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
}

func (d identityDocument) toDomain() domain.Identity {
	return domain.Identity{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         d.Role,
		Phone:        d.Phone,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Designation:  d.Designation,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type mongoIdentityRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

// NewMongoIdentityRepository returns a MongoDB-backed IdentityRepository.
func NewMongoIdentityRepository(db *mongo.Database) IdentityRepository {
	return &mongoIdentityRepository{db: db, collection: db.Collection(identitiesCollection)}
}

// Register inserts identity as admin while the collection is empty. The
// single-admin index settles concurrent first signups: losers are inserted
// again as team members. A failed insert claims nothing.
func (r *mongoIdentityRepository) Register(ctx context.Context, identity *domain.Identity) error {
	existing, err := r.Count(ctx)
	if err != nil {
		return err
	}
	identity.Role = domain.RoleForNewIdentity(existing)
	if identity.Role != domain.RoleAdmin {
		return r.Create(ctx, identity)
	}

	_, err = r.collection.InsertOne(ctx, newIdentityDocument(identity))
	switch {
	case err == nil:
		return nil
	case isDuplicateOn(err, identitySingleAdminIndex):
		identity.Role = domain.RoleTeamMember
		return r.Create(ctx, identity)
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}

func (r *mongoIdentityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	_, err := r.collection.InsertOne(ctx, newIdentityDocument(identity))
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *mongoIdentityRepository) Update(ctx context.Context, identity *domain.Identity) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": identity.ID}, bson.M{"$set": bson.M{
		"name":          identity.Name,
		"password_hash": identity.PasswordHash,
		"phone":         identity.Phone,
		"first_name":    identity.FirstName,
		"last_name":     identity.LastName,
		"designation":   identity.Designation,
		"updated_at":    identity.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the identity and unassigns its tickets.
func (r *mongoIdentityRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	_, err = r.db.Collection(ticketsCollection).UpdateMany(ctx,
		bson.M{"assignee_id": id},
		bson.M{"$set": bson.M{"assignee_id": nil}, "$inc": bson.M{"version": 1}},
	)
	return err
}

func (r *mongoIdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoIdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoIdentityRepository) findOne(ctx context.Context, filter bson.M) (*domain.Identity, error) {
	var doc identityDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	identity := doc.toDomain()
	return &identity, nil
}

func (r *mongoIdentityRepository) List(ctx context.Context) ([]domain.Identity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []identityDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	result := make([]domain.Identity, 0, len(docs))
	for _, doc := range docs {
		result = append(result, doc.toDomain())
	}
	return result, nil
}

func (r *mongoIdentityRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

func (r *mongoIdentityRepository) AdminExists(ctx context.Context) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"role": domain.RoleAdmin}, options.Count().SetLimit(1))
	return n > 0, err
}

type settingsDocument struct {
	ID       string          `bson:"_id"`
	Settings domain.Settings `bson:"settings"`
}

type mongoSettingsRepository struct {
	collection *mongo.Collection
}

// NewMongoSettingsRepository returns a MongoDB-backed SettingsRepository.
func NewMongoSettingsRepository(db *mongo.Database) SettingsRepository {
	return &mongoSettingsRepository{collection: db.Collection(settingsCollection)}
}

func (r *mongoSettingsRepository) GetOrCreate(ctx context.Context, defaults domain.Settings) (*domain.Settings, error) {
	after := options.After
	upsert := true
	var doc settingsDocument
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": settingsDocumentID},
		bson.M{"$setOnInsert": bson.M{"settings": defaults}},
		&options.FindOneAndUpdateOptions{ReturnDocument: &after, Upsert: &upsert},
	).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// Lost the insert race; the winner's document is there now.
		err = r.collection.FindOne(ctx, bson.M{"_id": settingsDocumentID}).Decode(&doc)
	}
	if err != nil {
		return nil, err
	}
	return &doc.Settings, nil
}

func (r *mongoSettingsRepository) Save(ctx context.Context, settings domain.Settings) error {
	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"_id": settingsDocumentID},
		settingsDocument{ID: settingsDocumentID, Settings: settings},
		options.Replace().SetUpsert(true),
	)
	return err
}
