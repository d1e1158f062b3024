package mongo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mmynk/tabkeeper/internal/calculator"
	"github.com/mmynk/tabkeeper/internal/models"
)

// Amounts are written as Decimal128 and quantities as int64. Both are read
// as raw values because documents created by the first version of the app
// hold plain doubles or the strings a form submitted, and may lack the paid
// field entirely.

type transactionDoc struct {
	ID              primitive.ObjectID `bson:"_id"`
	UserID          string             `bson:"userId"`
	ItemID          string             `bson:"itemId"`
	ItemName        string             `bson:"itemName"`
	Price           bson.RawValue      `bson:"price"`
	Quantity        bson.RawValue      `bson:"quantity"`
	Total           bson.RawValue      `bson:"total"`
	Paid            bson.RawValue      `bson:"paid"`
	Status          string             `bson:"status"`
	Date            time.Time          `bson:"date"`
	Note            string             `bson:"note"`
	CreatedAt       time.Time          `bson:"createdAt"`
	LastPaymentDate *time.Time         `bson:"lastPaymentDate"`
	Version         int64              `bson:"version"`
}

type paymentDoc struct {
	ID            primitive.ObjectID `bson:"_id"`
	UserID        string             `bson:"userId"`
	TransactionID primitive.ObjectID `bson:"transactionId"`
	ItemName      string             `bson:"itemName"`
	AllocationID  string             `bson:"allocationId,omitempty"`
	Amount        bson.RawValue      `bson:"amount"`
	Date          time.Time          `bson:"date"`
	Note          string             `bson:"note"`
	CreatedAt     time.Time          `bson:"createdAt"`
}

type itemDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	UserID      string             `bson:"userId"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Price       bson.RawValue      `bson:"price"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

type userDoc struct {
	ID           string `bson:"_id"`
	Email        string `bson:"email"`
	DisplayName  string `bson:"displayName"`
	PasswordHash string `bson:"password"`
	CreatedAt    int64  `bson:"createdAt"`
	UpdatedAt    int64  `bson:"updatedAt"`
}

// legacySettled is the settled marker written by the first version of the app.
const legacySettled = "Lunas"

func decimalFromRaw(field string, rv bson.RawValue) (decimal.Decimal, error) {
	switch rv.Type {
	case 0, bsontype.Null, bsontype.Undefined:
		return decimal.Zero, nil
	case bsontype.Double:
		return decimal.NewFromFloat(rv.Double()), nil
	case bsontype.Int32:
		return decimal.NewFromInt32(rv.Int32()), nil
	case bsontype.Int64:
		return decimal.NewFromInt(rv.Int64()), nil
	case bsontype.Decimal128:
		return decimal.NewFromString(rv.Decimal128().String())
	case bsontype.String:
		return decimal.NewFromString(rv.StringValue())
	default:
		return decimal.Zero, fmt.Errorf("unsupported %s type %s", field, rv.Type)
	}
}

func quantityFromRaw(rv bson.RawValue) (int64, error) {
	switch rv.Type {
	case 0, bsontype.Null, bsontype.Undefined:
		return 0, nil
	case bsontype.Int32:
		return int64(rv.Int32()), nil
	case bsontype.Int64:
		return rv.Int64(), nil
	case bsontype.Double:
		f := rv.Double()
		if f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
			return 0, fmt.Errorf("quantity %v is not a whole number", f)
		}
		return int64(f), nil
	case bsontype.String:
		q, err := strconv.ParseInt(strings.TrimSpace(rv.StringValue()), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid quantity %q: %w", rv.StringValue(), err)
		}
		return q, nil
	default:
		return 0, fmt.Errorf("unsupported quantity type %s", rv.Type)
	}
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("convert %s to decimal128: %w", d, err)
	}
	return v, nil
}

func (d *transactionDoc) toModel() (*models.Transaction, error) {
	tx := &models.Transaction{
		ID:        d.ID.Hex(),
		OwnerID:   d.UserID,
		ItemID:    d.ItemID,
		ItemName:  d.ItemName,
		Date:      d.Date,
		Note:      d.Note,
		CreatedAt: d.CreatedAt,
		Version:   d.Version,
	}

	var err error
	if tx.Quantity, err = quantityFromRaw(d.Quantity); err != nil {
		return nil, err
	}
	if tx.Price, err = decimalFromRaw("price", d.Price); err != nil {
		return nil, err
	}
	if tx.Total, err = decimalFromRaw("total", d.Total); err != nil {
		return nil, err
	}
	if tx.Paid, err = decimalFromRaw("paid", d.Paid); err != nil {
		return nil, err
	}
	if d.LastPaymentDate != nil {
		tx.LastPaymentDate = *d.LastPaymentDate
	}

	// Mirrors settledMatch and unsettledMatch.
	switch d.Status {
	case string(models.StatusSettled), legacySettled:
		tx.Status = models.StatusSettled
	default:
		tx.Status = calculator.StatusFor(tx.Total, tx.Paid)
	}

	return tx, nil
}

func transactionToBSON(oid primitive.ObjectID, tx *models.Transaction) (bson.D, error) {
	price, err := toDecimal128(tx.Price)
	if err != nil {
		return nil, err
	}
	total, err := toDecimal128(tx.Total)
	if err != nil {
		return nil, err
	}
	paid, err := toDecimal128(tx.Paid)
	if err != nil {
		return nil, err
	}

	doc := bson.D{
		{Key: "_id", Value: oid},
		{Key: "userId", Value: tx.OwnerID},
		{Key: "itemId", Value: nullable(tx.ItemID)},
		{Key: "itemName", Value: tx.ItemName},
		{Key: "price", Value: price},
		{Key: "quantity", Value: tx.Quantity},
		{Key: "total", Value: total},
		{Key: "paid", Value: paid},
		{Key: "status", Value: string(tx.Status)},
		{Key: "date", Value: tx.Date},
		{Key: "note", Value: tx.Note},
		{Key: "createdAt", Value: tx.CreatedAt},
		{Key: "version", Value: tx.Version},
	}
	if !tx.LastPaymentDate.IsZero() {
		doc = append(doc, bson.E{Key: "lastPaymentDate", Value: tx.LastPaymentDate})
	}
	return doc, nil
}

func (d *paymentDoc) toModel() (*models.Payment, error) {
	amount, err := decimalFromRaw("amount", d.Amount)
	if err != nil {
		return nil, err
	}
	return &models.Payment{
		ID:            d.ID.Hex(),
		OwnerID:       d.UserID,
		TransactionID: d.TransactionID.Hex(),
		ItemName:      d.ItemName,
		AllocationID:  d.AllocationID,
		Amount:        amount,
		Date:          d.Date,
		Note:          d.Note,
		CreatedAt:     d.CreatedAt,
	}, nil
}

func (d *itemDoc) toModel() (*models.CatalogItem, error) {
	price, err := decimalFromRaw("price", d.Price)
	if err != nil {
		return nil, err
	}
	return &models.CatalogItem{
		ID:          d.ID.Hex(),
		OwnerID:     d.UserID,
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		CreatedAt:   d.CreatedAt,
	}, nil
}

func (d *userDoc) toModel() *models.User {
	return &models.User{
		ID:           d.ID,
		Email:        d.Email,
		DisplayName:  d.DisplayName,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
