package common

import (
	"encoding/json"
	"errors"
	"io"
)

// ErrTrailingJSON 請求體在第一個 JSON 值之後還有資料
var ErrTrailingJSON = errors.New("unexpected data after JSON value")

// DecodeJSONStrict 解析單一 JSON 值到 v，拒絕未知欄位與多餘資料
func DecodeJSONStrict(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return ErrTrailingJSON
	}
	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
