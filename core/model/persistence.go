package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// SaveModel はモデルをgob形式でファイルに保存する
//
// インターフェース型のフィールドを持つ構造体を保存する場合は、
// 具象型を事前に gob.Register しておく必要がある。
//
// 使用例:
//
//	err := model.SaveModel(pipeline, "best_model.gob")
func SaveModel(m interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", filename)
	}
	if err := SaveModelToWriter(m, file); err != nil {
		file.Close()
		return err
	}
	return errors.Wrap(file.Close(), "failed to close model file")
}

// LoadModel はgob形式のファイルからモデルを読み込む
//
// 使用例:
//
//	var p experiment.Pipeline
//	err := model.LoadModel(&p, "best_model.gob")
func LoadModel(m interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", filename)
	}
	defer file.Close()
	return LoadModelFromReader(m, file)
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(m interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(m interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
