package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Codec 是结构化数据的序列化器，envelope 与 fetch 层都只依赖该接口。
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec 以严格模式解码：未知字段与尾随数据都会报错，
// 这样 FirstOf2 之类的多形态回退才能区分 A/B 两种结构。
type JSONCodec struct {
	// Lenient 关闭未知字段检查。
	Lenient bool
}

func (c JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c JSONCodec) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if !c.Lenient {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected trailing data after JSON value")
	}
	return nil
}
