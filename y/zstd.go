/*
 * Copyright 2019 Dgraph Labs, Inc. and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package y

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	zstdDec     *zstd.Decoder
	zstdDecOnce sync.Once
)

// ZSTDDecompress decompresses a block or a whole stream using ZSTD algorithm.
func ZSTDDecompress(dst, src []byte) ([]byte, error) {
	var err error
	zstdDecOnce.Do(func() {
		zstdDec, err = zstd.NewReader(nil)
		AssertTrue(err == nil)
	})
	return zstdDec.DecodeAll(src, dst[:0])
}

// NewZSTDWriter returns a streaming encoder writing to w at the given zstd
// level. The caller must Close it to flush the last frame.
func NewZSTDWriter(w io.Writer, level int) (*zstd.Encoder, error) {
	return zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderCRC(true))
}
