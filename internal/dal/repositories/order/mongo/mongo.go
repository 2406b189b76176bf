package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/cafe/internal/service/models/order"
	"github.com/corray333/backend-labs/cafe/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orderItemDoc struct {
	ProductID string  `bson:"productId,omitempty"`
	Name      string  `bson:"name"`
	Quantity  int     `bson:"quantity"`
	Price     float64 `bson:"price"`
}

// orderDoc keeps the document shape of the existing orders collection.
type orderDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	EmployeeName     string             `bson:"employeeName"`
	EmployeeEmail    string             `bson:"employeeEmail"`
	Items            []orderItemDoc     `bson:"items"`
	Total            float64            `bson:"total"`
	VerificationCode string             `bson:"verificationCode"`
	Status           string             `bson:"status"`
	CreatedAt        time.Time          `bson:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt"`
}

func fromModel(o order.Order) orderDoc {
	items := make([]orderItemDoc, 0, len(o.Items))
	for _, item := range o.Items {
		price, _ := item.Price.Float64()
		items = append(items, orderItemDoc{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     price,
		})
	}
	total, _ := o.Total.Float64()

	return orderDoc{
		EmployeeName:     o.EmployeeName,
		EmployeeEmail:    o.EmployeeEmail,
		Items:            items,
		Total:            total,
		VerificationCode: o.VerificationCode,
		Status:           o.Status.String(),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func (d *orderDoc) toModel() order.Order {
	items := make([]orderitem.OrderItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, orderitem.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     decimal.NewFromFloat(item.Price),
		})
	}

	return order.Order{
		ID:               d.ID.Hex(),
		EmployeeName:     d.EmployeeName,
		EmployeeEmail:    d.EmployeeEmail,
		Items:            items,
		Total:            decimal.NewFromFloat(d.Total),
		VerificationCode: d.VerificationCode,
		Status:           order.Status(d.Status),
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// MongoOrderRepository stores orders as documents in a single collection.
type MongoOrderRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoOrderRepository(db *mongo.Database, collection string) *MongoOrderRepository {
	return &MongoOrderRepository{
		collection: db.Collection(collection),
		now:        time.Now,
	}
}

// CreateIndexes creates the index backing the confirmed orders listing.
func (r *MongoOrderRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// timestamp matches the millisecond precision Mongo stores dates with.
func (r *MongoOrderRepository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

func (r *MongoOrderRepository) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	now := r.timestamp()
	o.CreatedAt = now
	o.UpdatedAt = now

	res, err := r.collection.InsertOne(ctx, fromModel(o))
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return order.Order{}, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	o.ID = id.Hex()

	return o, nil
}

func (r *MongoOrderRepository) GetByID(ctx context.Context, id string) (order.Order, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return order.Order{}, order.ErrNotFound
	}

	var doc orderDoc
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return order.Order{}, order.ErrNotFound
		}

		return order.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	return doc.toModel(), nil
}

// ConfirmPending flips a Pending order to Confirmed in one conditional update.
func (r *MongoOrderRepository) ConfirmPending(ctx context.Context, id string) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, order.ErrNotFound
	}

	filter := bson.M{
		"_id":    objectID,
		"status": order.StatusPending.String(),
	}
	update := bson.M{
		"$set": bson.M{
			"status":    order.StatusConfirmed.String(),
			"updatedAt": r.timestamp(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to confirm order: %w", err)
	}

	return result.MatchedCount == 1, nil
}

func (r *MongoOrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status.String()
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	result := make([]order.Order, 0, len(docs))
	for i := range docs {
		result = append(result, docs[i].toModel())
	}

	return result, nil
}
