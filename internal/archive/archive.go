// Package archive stores scan snapshots in MongoDB.
//
// Each snapshot is inserted once into the snapshot collection. Its
// transactions are upserted into "<collection>_transactions" keyed by
// their card-side fields, so repeated scans of the same card, whose
// history windows overlap, do not duplicate entries.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/ginjaninja78/felica-ledger/internal/writer"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const transactionsSuffix = "_transactions"

// SnapshotRecord is the stored form of one scan.
type SnapshotRecord struct {
	ScanID       string    `bson:"scanId"`
	Source       string    `bson:"source"`
	ScannedAt    time.Time `bson:"scannedAt"`
	Balance      int       `bson:"balance"`
	Transactions int       `bson:"transactions"`
	ArchivedAt   time.Time `bson:"archivedAt"`
}

// TransactionRecord is the stored form of one ledger row.
type TransactionRecord struct {
	Date            string `bson:"date"`
	Kind            string `bson:"kind"`
	MachineCode     string `bson:"machineCode"`
	ProcessCode     string `bson:"processCode"`
	StationCode     string `bson:"stationCode,omitempty"`
	Station         string `bson:"station,omitempty"`
	TripRole        string `bson:"tripRole"`
	Balance         int    `bson:"balance"`
	PreviousBalance *int   `bson:"previousBalance,omitempty"`
	Delta           *int   `bson:"delta,omitempty"`
	LastScanID      string `bson:"lastScanId"`
}

// Archive writes snapshots through a CollectionProvider.
type Archive struct {
	provider   CollectionProvider
	collection string
	now        func() time.Time
}

// New creates an Archive writing to collection.
func New(provider CollectionProvider, collection string) *Archive {
	return &Archive{
		provider:   provider,
		collection: collection,
		now:        time.Now,
	}
}

// TransactionsCollection is the name of the transaction collection.
func (a *Archive) TransactionsCollection() string {
	return a.collection + transactionsSuffix
}

// Save stores doc. Transactions are written first; the snapshot record is
// only inserted once they are in place.
func (a *Archive) Save(ctx context.Context, doc writer.Document) error {
	if len(doc.Rows) > 0 {
		models := make([]mongo.WriteModel, 0, len(doc.Rows))
		for _, row := range doc.Rows {
			rec := NewTransactionRecord(row, doc.ScanID)
			models = append(models, mongo.NewUpdateOneModel().
				SetFilter(transactionKey(rec)).
				SetUpdate(bson.M{"$set": rec}).
				SetUpsert(true))
		}

		name := a.TransactionsCollection()
		if _, err := a.provider.Collection(name).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
			return fmt.Errorf("failed to archive transactions of scan %s: %w", doc.ScanID, err)
		}
	}

	record := SnapshotRecord{
		ScanID:       doc.ScanID,
		Source:       doc.Source,
		ScannedAt:    doc.ScannedAt,
		Balance:      doc.Balance,
		Transactions: len(doc.Rows),
		ArchivedAt:   a.now().UTC(),
	}
	if _, err := a.provider.Collection(a.collection).InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to archive scan %s: %w", doc.ScanID, err)
	}
	return nil
}

// NewTransactionRecord converts a ledger row.
func NewTransactionRecord(row writer.Row, scanID string) TransactionRecord {
	return TransactionRecord{
		Date:            row.Date,
		Kind:            row.Kind,
		MachineCode:     row.MachineCode,
		ProcessCode:     row.ProcessCode,
		StationCode:     row.StationCode,
		Station:         row.Station,
		TripRole:        row.TripRole,
		Balance:         row.Balance,
		PreviousBalance: row.PreviousBalance,
		Delta:           row.Delta,
		LastScanID:      scanID,
	}
}

// transactionKey identifies a history record across scans. Trip role and
// previous balance are excluded: the oldest record of one scan lacks them
// while a later scan knows both.
func transactionKey(rec TransactionRecord) bson.M {
	return bson.M{
		"date":        rec.Date,
		"machineCode": rec.MachineCode,
		"processCode": rec.ProcessCode,
		"stationCode": rec.StationCode,
		"balance":     rec.Balance,
	}
}
