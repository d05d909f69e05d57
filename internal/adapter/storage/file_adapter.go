package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/rl1809/warehouse/internal/core/domain"
)

const (
	SchemaVersion  = 1
	productsFile   = "products.yaml"
	operationsFile = "operations.yaml"
)

var ErrUnsupportedSchema = errors.New("unsupported snapshot schema version")

type productsDocument struct {
	SchemaVersion int             `yaml:"schema_version"`
	Products      []productRecord `yaml:"products"`
}

type operationsDocument struct {
	SchemaVersion int               `yaml:"schema_version"`
	Operations    []operationRecord `yaml:"operations"`
}

// FileAdapter keeps the catalog and the ledger as two YAML documents in dir.
// Every save rewrites the whole document.
type FileAdapter struct {
	mu  sync.Mutex
	dir string
}

func NewFileAdapter(dir string) (*FileAdapter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create data dir %s", dir)
	}
	return &FileAdapter{dir: dir}, nil
}

func (f *FileAdapter) LoadAll(ctx context.Context) ([]domain.Product, []domain.OperationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var pd productsDocument
	if err := f.read(productsFile, &pd, &pd.SchemaVersion); err != nil {
		return nil, nil, err
	}
	products, err := fromProductRecords(pd.Products)
	if err != nil {
		return nil, nil, errors.Wrap(err, productsFile)
	}

	var od operationsDocument
	if err := f.read(operationsFile, &od, &od.SchemaVersion); err != nil {
		return nil, nil, err
	}
	operations, err := fromOperationRecords(od.Operations)
	if err != nil {
		return nil, nil, errors.Wrap(err, operationsFile)
	}

	return products, operations, nil
}

func (f *FileAdapter) SaveProducts(ctx context.Context, products []domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.write(productsFile, productsDocument{
		SchemaVersion: SchemaVersion,
		Products:      toProductRecords(products),
	})
}

func (f *FileAdapter) SaveOperations(ctx context.Context, operations []domain.OperationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.write(operationsFile, operationsDocument{
		SchemaVersion: SchemaVersion,
		Operations:    toOperationRecords(operations),
	})
}

// read decodes name into doc. A missing file leaves doc empty.
func (f *FileAdapter) read(name string, doc interface{}, version *int) error {
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "read %s", name)
	}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return errors.Wrapf(err, "decode %s", name)
	}
	if len(data) > 0 && *version != SchemaVersion {
		return errors.Wrapf(ErrUnsupportedSchema, "%s has version %d", name, *version)
	}
	return nil
}

// write replaces name atomically through a temp file in the same directory.
func (f *FileAdapter) write(name string, doc interface{}) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, "encode %s", name)
	}

	tmp, err := os.CreateTemp(f.dir, name+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", name)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), filepath.Join(f.dir, name)), "replace %s", name)
}
