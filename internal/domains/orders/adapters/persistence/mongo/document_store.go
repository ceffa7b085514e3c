package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/adapters/live"
	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
)

var _ ports.DocumentStore = (*DocumentStore)(nil)

// CollectionName is the collection orders live in.
const CollectionName = "orders"

// DocumentStore keeps orders as MongoDB documents keyed by order id.
type DocumentStore struct {
	coll      *mongo.Collection
	hub       *live.Hub
	logger    *slog.Logger
	listening atomic.Bool
}

func NewDocumentStore(db *mongo.Database, logger *slog.Logger) *DocumentStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &DocumentStore{logger: logger}
	if db != nil {
		s.coll = db.Collection(CollectionName)
	}
	s.hub = live.NewHub(s.load, logger)
	return s
}

type orderDocument struct {
	ID               string         `bson:"_id"`
	UserID           string         `bson:"userId"`
	UserEmail        string         `bson:"userEmail"`
	UserName         string         `bson:"userName"`
	UserPhone        string         `bson:"userPhone"`
	UserAddress      string         `bson:"userAddress"`
	Items            []itemDocument `bson:"items"`
	Total            float64        `bson:"total"`
	Status           string         `bson:"status"`
	PaymentMethod    string         `bson:"paymentMethod"`
	PaymentStatus    string         `bson:"paymentStatus"`
	PaymentReference string         `bson:"paymentReference,omitempty"`
	DeliveryMethod   string         `bson:"deliveryMethod"`
	DeliveryAddress  string         `bson:"deliveryAddress,omitempty"`
	Message          string         `bson:"message,omitempty"`
	CreatedAt        time.Time      `bson:"createdAt"`
	UpdatedAt        time.Time      `bson:"updatedAt"`
}

type itemDocument struct {
	ID       string  `bson:"id"`
	Name     string  `bson:"name"`
	Price    float64 `bson:"price"`
	Quantity int     `bson:"quantity"`
	Image    string  `bson:"image,omitempty"`
}

// EnsureIndexes creates the owner and recency indexes live queries rely on.
func (s *DocumentStore) EnsureIndexes(ctx context.Context) error {
	if err := s.ensureColl(); err != nil {
		return err
	}
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	return err
}

func (s *DocumentStore) Insert(ctx context.Context, order *domain.Order) error {
	if err := s.ensureColl(); err != nil {
		return err
	}
	if order == nil {
		return errors.New("order is nil")
	}
	if _, err := s.coll.InsertOne(ctx, toDocument(order)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ports.ErrAlreadyExists
		}
		return err
	}
	s.changed()
	return nil
}

func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	if err := s.ensureColl(); err != nil {
		return nil, err
	}
	var doc orderDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

// Update applies the patch with $set so untouched fields are preserved.
func (s *DocumentStore) Update(ctx context.Context, id string, patch domain.Patch) error {
	if err := s.ensureColl(); err != nil {
		return err
	}
	set := bson.M{}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}
	if patch.PaymentStatus != nil {
		set["paymentStatus"] = string(*patch.PaymentStatus)
	}
	if patch.PaymentReference != nil {
		set["paymentReference"] = *patch.PaymentReference
	}
	if !patch.UpdatedAt.IsZero() {
		set["updatedAt"] = patch.UpdatedAt
	}
	if len(set) == 0 {
		n, err := s.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
		if err != nil {
			return err
		}
		if n == 0 {
			return ports.ErrNotFound
		}
		return nil
	}
	result, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ports.ErrNotFound
	}
	s.changed()
	return nil
}

func (s *DocumentStore) Watch(ctx context.Context, query ports.Query, onSnapshot ports.SnapshotFunc, onError ports.ErrorFunc) (ports.Subscription, error) {
	if err := s.ensureColl(); err != nil {
		return nil, err
	}
	return s.hub.Subscribe(ctx, query, onSnapshot, onError)
}

// Listen opens a change stream on the collection and refreshes live queries
// on every event until ctx is cancelled. Change streams need a replica set.
// If the stream later breaks, every live query ends with the stream error.
func (s *DocumentStore) Listen(ctx context.Context) error {
	if err := s.ensureColl(); err != nil {
		return err
	}
	stream, err := s.coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return fmt.Errorf("open change stream: %w", err)
	}
	s.listening.Store(true)
	go s.consume(ctx, stream)
	return nil
}

func (s *DocumentStore) consume(ctx context.Context, stream *mongo.ChangeStream) {
	defer func() {
		s.listening.Store(false)
		_ = stream.Close(context.Background())
	}()
	for stream.Next(ctx) {
		s.hub.Notify()
	}
	if ctx.Err() != nil {
		return
	}
	err := stream.Err()
	if err == nil {
		err = errors.New("change stream closed")
	}
	s.logger.Error("order change stream failed", slog.String("error", err.Error()))
	s.hub.Fail(err)
}

// Close ends every live query.
func (s *DocumentStore) Close() {
	s.hub.Close()
}

func (s *DocumentStore) changed() {
	if !s.listening.Load() {
		s.hub.Notify()
	}
}

func (s *DocumentStore) load(ctx context.Context, query ports.Query) ([]*domain.Order, error) {
	filter := bson.M{}
	if query.UserID != "" {
		filter["userId"] = query.UserID
	}
	opts := options.Find()
	if query.Newest {
		opts.SetSort(bson.D{{Key: "createdAt", Value: -1}})
	}
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(docs))
	for i := range docs {
		orders = append(orders, docs[i].toDomain())
	}
	return orders, nil
}

func (s *DocumentStore) ensureColl() error {
	if s == nil || s.coll == nil {
		return errors.New("mongo order store not configured")
	}
	return nil
}

func toDocument(order *domain.Order) orderDocument {
	items := make([]itemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, itemDocument{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Image:    item.Image,
		})
	}
	return orderDocument{
		ID:               order.ID,
		UserID:           order.UserID,
		UserEmail:        order.UserEmail,
		UserName:         order.UserName,
		UserPhone:        order.UserPhone,
		UserAddress:      order.UserAddress,
		Items:            items,
		Total:            order.Total,
		Status:           string(order.Status),
		PaymentMethod:    string(order.PaymentMethod),
		PaymentStatus:    string(order.PaymentStatus),
		PaymentReference: order.PaymentReference,
		DeliveryMethod:   string(order.DeliveryMethod),
		DeliveryAddress:  order.DeliveryAddress,
		Message:          order.Message,
		CreatedAt:        order.CreatedAt.UTC(),
		UpdatedAt:        order.UpdatedAt.UTC(),
	}
}

func (d orderDocument) toDomain() *domain.Order {
	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.OrderItem{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Image:    item.Image,
		})
	}
	return &domain.Order{
		ID:               d.ID,
		UserID:           d.UserID,
		UserEmail:        d.UserEmail,
		UserName:         d.UserName,
		UserPhone:        d.UserPhone,
		UserAddress:      d.UserAddress,
		Items:            items,
		Total:            d.Total,
		Status:           domain.Status(d.Status),
		PaymentMethod:    domain.PaymentMethod(d.PaymentMethod),
		PaymentStatus:    domain.PaymentStatus(d.PaymentStatus),
		PaymentReference: d.PaymentReference,
		DeliveryMethod:   domain.DeliveryMethod(d.DeliveryMethod),
		DeliveryAddress:  d.DeliveryAddress,
		Message:          d.Message,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}
