package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	chat "jobboard/internal/pkg/chat/application/domain"
	repository "jobboard/internal/pkg/chat/persistence/repository/port"
)

const chatsCollection = "chats"

type chatDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	SenderID   string             `bson:"senderId"`
	ReceiverID string             `bson:"receiverId"`
	PairLow    string             `bson:"pairLow"`
	PairHigh   string             `bson:"pairHigh"`
	Messages   []messageDocument  `bson:"messages"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

type messageDocument struct {
	SenderID  string    `bson:"senderId"`
	Message   string    `bson:"message"`
	Timestamp time.Time `bson:"timestamp"`
}

// MongoChatRepository stores each conversation as one document with an
// embedded message array; $push on that document is the serialization point.
type MongoChatRepository struct {
	coll *mongo.Collection
}

func NewMongoChatRepository(db *mongo.Database) *MongoChatRepository {
	return &MongoChatRepository{coll: db.Collection(chatsCollection)}
}

var _ repository.ChatRepository = (*MongoChatRepository)(nil)

// pairIndexName names the unique participant-pair index.
const pairIndexName = "chat_pair_uidx"

// EnsureIndexes backfills pair keys on documents written without them and
// creates the unique participant-pair index. The index is partial so a
// document that still lacks pair keys cannot block the build.
func (r *MongoChatRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.coll.UpdateMany(ctx, bson.M{"pairLow": bson.M{"$exists": false}}, pairBackfill()); err != nil {
		return fmt.Errorf("backfill pair keys: %w", err)
	}
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "pairLow", Value: 1}, {Key: "pairHigh", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetName(pairIndexName).
			SetPartialFilterExpression(bson.M{"pairLow": bson.M{"$exists": true}}),
	})
	return err
}

// pairBackfill derives pairLow/pairHigh from senderId/receiverId. Ids stored
// as ObjectIDs compare by their hex form, the same form the service reads.
func pairBackfill() mongo.Pipeline {
	sender := bson.M{"$toString": "$senderId"}
	receiver := bson.M{"$toString": "$receiverId"}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"pairLow":  bson.M{"$min": bson.A{sender, receiver}},
			"pairHigh": bson.M{"$max": bson.A{sender, receiver}},
		}}},
	}
}

func (r *MongoChatRepository) FindConversation(ctx context.Context, a, b string) (*chat.Conversation, error) {
	low, high := chat.PairKey(a, b)
	return r.findOne(ctx, bson.M{"pairLow": low, "pairHigh": high})
}

func (r *MongoChatRepository) FindConversationByID(ctx context.Context, id string) (*chat.Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoChatRepository) CreateConversation(ctx context.Context, senderID, receiverID string, first chat.Message) (*chat.Conversation, error) {
	low, high := chat.PairKey(senderID, receiverID)
	doc := chatDocument{
		SenderID:   senderID,
		ReceiverID: receiverID,
		PairLow:    low,
		PairHigh:   high,
		Messages:   []messageDocument{toMessageDocument(first)},
		CreatedAt:  first.CreatedAt,
		UpdatedAt:  first.CreatedAt,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return nil, chat.ErrConversationExists
	}
	if err != nil {
		return nil, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *MongoChatRepository) AppendMessage(ctx context.Context, conversationID string, m chat.Message) (*chat.Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, chat.ErrConversationNotFound
	}
	update := bson.M{
		"$push": bson.M{"messages": toMessageDocument(m)},
		"$max":  bson.M{"updatedAt": m.CreatedAt},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc chatDocument
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, chat.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *MongoChatRepository) findOne(ctx context.Context, filter bson.M) (*chat.Conversation, error) {
	var doc chatDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func toMessageDocument(m chat.Message) messageDocument {
	return messageDocument{SenderID: m.SenderID, Message: m.Body, Timestamp: m.CreatedAt}
}

func (d chatDocument) toDomain() *chat.Conversation {
	c := &chat.Conversation{
		ID:         d.ID.Hex(),
		SenderID:   d.SenderID,
		ReceiverID: d.ReceiverID,
		Messages:   make([]chat.Message, 0, len(d.Messages)),
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
	for _, m := range d.Messages {
		c.Messages = append(c.Messages, chat.Message{SenderID: m.SenderID, Body: m.Message, CreatedAt: m.Timestamp.UTC()})
	}
	return c
}
