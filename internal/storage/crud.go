package storage

import (
	"encoding/json"
	stderrors "errors"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/manav03panchal/bikeguard/internal/model"
)

// ErrKeyNotFound is returned for reads of a missing key.
var ErrKeyNotFound = stderrors.New("key not found")

// IsErrKeyNotFound matches both ErrKeyNotFound and badger's own sentinel.
func IsErrKeyNotFound(err error) bool {
	return stderrors.Is(err, ErrKeyNotFound) || stderrors.Is(err, badger.ErrKeyNotFound)
}

// Get loads the record at key into v and stamps the key on it.
func (d *DB) Get(key string, v model.Model) error {
	if err := d.GetJSON(key, v); err != nil {
		return err
	}
	v.SetKey(key)
	return nil
}

func (d *DB) GetJSON(key string, v any) error {
	return d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return ErrKeyNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, v) })
	})
}

// GetBytes returns a copy of the raw value at key.
func (d *DB) GetBytes(key string) ([]byte, error) {
	var out []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return ErrKeyNotFound
		}
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	return out, err
}

// Set stores v under its own key.
func (d *DB) Set(v model.Model) error {
	return d.SetJSON(v.GetKey(), v)
}

func (d *DB) SetJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return d.SetBytes(key, data)
}

// SetBytes writes data at key once the volume has room for it.
func (d *DB) SetBytes(key string, data []byte) error {
	if err := d.checkWritable(); err != nil {
		return err
	}
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (d *DB) Delete(key string) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (d *DB) Exists(key string) (bool, error) {
	err := d.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case stderrors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Scan decodes every record under prefix in key order, or in reverse key
// order when reverse is set.
func Scan[T model.Model](d *DB, prefix string, reverse bool, newFunc func() T) ([]T, error) {
	var out []T
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.Reverse = reverse
		it := txn.NewIterator(opts)
		defer it.Close()

		start := []byte(prefix)
		if reverse {
			// Seek lands on the last key <= start when iterating backwards.
			start = append(start, 0xFF)
		}
		for it.Seek(start); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			v := newFunc()
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, v) }); err != nil {
				return err
			}
			v.SetKey(string(item.KeyCopy(nil)))
			out = append(out, v)
		}
		return nil
	})
	return out, err
}
