package store

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"syscall"
)

// readJSONShared decodes the JSON file at path under a shared flock, so
// concurrent readers never observe a half-written update.
func readJSONShared[T any](path string) (*T, error) {
	file, err := os.OpenFile(path, os.O_RDONLY, 0o666)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err = syscall.Flock(int(file.Fd()), syscall.LOCK_SH); err != nil {
		return nil, err
	}
	defer func() { _ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN) }()

	var data T
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// updateJSONExclusive applies update to the decoded contents of path under
// an exclusive flock and writes the result back in place. A missing or
// empty file decodes to the zero value, so the first update creates it.
func updateJSONExclusive[T any](path string, update func(data *T) error) error {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return err
	}
	defer file.Close()

	if err = syscall.Flock(int(file.Fd()), syscall.LOCK_EX); err != nil {
		return err
	}
	defer func() { _ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN) }()

	var data T
	if err := json.NewDecoder(file).Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	if err := update(&data); err != nil {
		return err
	}

	if err := json.NewEncoder(file).Encode(data); err != nil {
		return err
	}

	// Truncate at the write position so a shorter document leaves no tail
	// of the previous contents behind.
	pos, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	return file.Truncate(pos)
}

// FileSettings is a SettingsStore persisted as one JSON object on disk.
// Every call goes through the file under an advisory lock, so several
// processes can share the same settings file.
type FileSettings struct {
	path string
}

func NewFileSettings(path string) *FileSettings {
	return &FileSettings{path: path}
}

func (s *FileSettings) Get(key string) (string, bool) {
	data, err := readJSONShared[map[string]string](s.path)
	if err != nil {
		return "", false
	}
	value, ok := (*data)[key]
	return value, ok
}

func (s *FileSettings) Set(key, value string) error {
	return updateJSONExclusive(s.path, func(data *map[string]string) error {
		if *data == nil {
			*data = make(map[string]string)
		}
		(*data)[key] = value
		return nil
	})
}
