package fundboard

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// DraftKey returns the key that a comment draft is stored under. Replies get
// their own draft per target.
func DraftKey(projectID, replyingTo string) string {
	key := "CommentOn" + projectID
	if replyingTo != "" {
		key += "ReplyingTo" + replyingTo
	}
	return key
}

// Drafts stores unsent comment documents.
type Drafts interface {
	// Get returns the draft under key. False is returned if there is none.
	Get(key string) (Doc, bool, error)
	Put(key string, doc Doc) error
	// Clear deletes the draft. Clearing a missing draft is not an error.
	Clear(key string) error
}

var (
	_ Drafts = (*BoltDrafts)(nil)
	_ Drafts = (*MemDrafts)(nil)
)

var bucketDrafts = []byte("drafts")

// draftDecMode decodes attribute maps as string-keyed maps, so that documents
// read back from disk can still be marshaled into JSON.
var draftDecMode, _ = cbor.DecOptions{
	DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
}.DecMode()

// BoltDrafts is a draft store backed by a bbolt file.
type BoltDrafts struct {
	db *bbolt.DB
}

// OpenDrafts opens the draft store at path. If existingOnly is true, then the
// file must already exist.
func OpenDrafts(path string, existingOnly bool) (*BoltDrafts, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout:      5 * time.Second,
		FreelistType: bbolt.FreelistArrayType,
		OpenFile: func(path string, flags int, mode fs.FileMode) (*os.File, error) {
			if existingOnly {
				flags &= ^os.O_CREATE
			}
			return os.OpenFile(path, flags, mode)
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "bbolt")
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDrafts)
		return err
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create drafts bucket")
	}

	return &BoltDrafts{db}, nil
}

// Close closes the database.
func (d *BoltDrafts) Close() error {
	return d.db.Close()
}

// Get implements Drafts.
func (d *BoltDrafts) Get(key string) (Doc, bool, error) {
	var doc Doc
	var found bool

	err := d.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketDrafts).Get([]byte(key))
		if v == nil {
			return nil
		}

		found = true
		return decodeDraft(v, &doc)
	})
	if err != nil {
		return Doc{}, false, errors.Wrapf(err, "failed to read draft %q", key)
	}

	return doc, found, nil
}

// Put implements Drafts.
func (d *BoltDrafts) Put(key string, doc Doc) error {
	v, err := encodeDraft(doc)
	if err != nil {
		return err
	}

	return d.db.Update(func(tx *bbolt.Tx) error {
		return errors.Wrap(tx.Bucket(bucketDrafts).Put([]byte(key), v), "cannot put into database")
	})
}

// Clear implements Drafts.
func (d *BoltDrafts) Clear(key string) error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDrafts).Delete([]byte(key))
	})
}

func encodeDraft(doc Doc) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(versionBytePrefix)
	buf.WriteByte(byte(CurrentVersion))

	if err := cbor.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, errors.Wrap(err, "failed to marshal draft")
	}

	return buf.Bytes(), nil
}

func decodeDraft(b []byte, doc *Doc) error {
	if len(b) < 2 || b[0] != versionBytePrefix {
		return errors.New("draft has no version prefix")
	}

	switch version := Version(b[1]); version {
	case VersionCBOR:
		return draftDecMode.Unmarshal(b[2:], doc)
	default:
		return fmt.Errorf("unknown version %d", version)
	}
}

// MemDrafts is an in-memory draft store. The zero value is ready to use.
type MemDrafts struct {
	mu     sync.Mutex
	drafts map[string]Doc
}

// Get implements Drafts.
func (d *MemDrafts) Get(key string) (Doc, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc, ok := d.drafts[key]
	return doc, ok, nil
}

// Put implements Drafts.
func (d *MemDrafts) Put(key string, doc Doc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.drafts == nil {
		d.drafts = make(map[string]Doc)
	}
	d.drafts[key] = doc
	return nil
}

// Clear implements Drafts.
func (d *MemDrafts) Clear(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.drafts, key)
	return nil
}
