package ps

import (
	"errors"
	"fmt"
	"iter"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
)

const documentExt = ".json"

var ErrDocumentNotFound = errors.New("document not found")

// DocumentPath is the repository path of a document: <collection>/<id>.json
func DocumentPath(collection, id string) string {
	return path.Join(collection, id+documentExt)
}

// Collections lists every collection holding at least one document at HEAD.
func (p *Persistence) Collections() ([]string, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	tree, err := p.headTree()
	if errors.Is(err, ErrNoCommits) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var collections []string
	for _, entry := range tree.Entries {
		if entry.Mode == filemode.Dir {
			collections = append(collections, entry.Name)
		}
	}
	sort.Strings(collections)
	return collections, nil
}

// ReadDocument returns the raw JSON stored for id in collection at HEAD.
func (p *Persistence) ReadDocument(collection, id string) ([]byte, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	tree, err := p.headTree()
	if errors.Is(err, ErrNoCommits) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}

	file, err := tree.File(DocumentPath(collection, id))
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", collection, id, err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, err
	}
	return []byte(content), nil
}

// HasDocument reports whether id exists in collection at HEAD.
func (p *Persistence) HasDocument(collection, id string) bool {
	_, err := p.ReadDocument(collection, id)
	return err == nil
}

// RawDocument is a stored document as read from the object store.
type RawDocument struct {
	ID   string
	Data []byte
}

// ScanDocuments iterates the documents of collection at HEAD in id order.
// A read failure is yielded once as a non-nil error and ends the iteration.
func (p *Persistence) ScanDocuments(collection string) iter.Seq2[RawDocument, error] {
	return func(yield func(RawDocument, error) bool) {
		if err := p.ensureInitialized(); err != nil {
			yield(RawDocument{}, err)
			return
		}

		tree, err := p.headTree()
		if errors.Is(err, ErrNoCommits) {
			return
		}
		if err != nil {
			yield(RawDocument{}, err)
			return
		}

		for _, entry := range subtreeEntries(tree, collection) {
			id, ok := strings.CutSuffix(entry.Name, documentExt)
			if !ok {
				continue
			}

			data, err := p.readBlob(entry.Hash)
			if err != nil {
				yield(RawDocument{}, err)
				return
			}

			if !yield(RawDocument{ID: id, Data: data}, nil) {
				return
			}
		}
	}
}

// CountDocuments returns the number of documents in collection at HEAD.
func (p *Persistence) CountDocuments(collection string) int {
	tree, err := p.headTree()
	if err != nil {
		return 0
	}

	count := 0
	for _, entry := range subtreeEntries(tree, collection) {
		if strings.HasSuffix(entry.Name, documentExt) {
			count++
		}
	}
	return count
}
