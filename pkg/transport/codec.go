// Copyright 2025 Netsort Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transport

import (
	"encoding/binary"
	"fmt"

	"github.com/fagongzi/goetty/v2/buf"
	"github.com/fagongzi/goetty/v2/codec"
	"github.com/fagongzi/goetty/v2/codec/length"
)

const (
	// frameHello identifies the dialing rank, first frame on every connection.
	frameHello byte = iota + 1
	// frameData carries one partition for a pairwise exchange round.
	frameData
	// frameBarrier is an empty rendezvous frame of the dissemination barrier.
	frameBarrier
	// frameScatter and frameGather carry partitions between rank 0 and the
	// group outside the network proper.
	frameScatter
	frameGather
)

// frame header: 1 byte kind, 4 bytes from-rank, 4 bytes sequence,
// 4 bytes element count. The element payload follows as big-endian int64s.
const frameHeaderSize = 13

type frame struct {
	kind byte
	from uint32
	seq  uint32
	data []int64
}

func (f *frame) marshal() []byte {
	body := make([]byte, frameHeaderSize+8*len(f.data))
	body[0] = f.kind
	binary.BigEndian.PutUint32(body[1:], f.from)
	binary.BigEndian.PutUint32(body[5:], f.seq)
	binary.BigEndian.PutUint32(body[9:], uint32(len(f.data)))
	off := frameHeaderSize
	for _, v := range f.data {
		binary.BigEndian.PutUint64(body[off:], uint64(v))
		off += 8
	}
	return body
}

func (f *frame) unmarshal(body []byte) error {
	if len(body) < frameHeaderSize {
		return fmt.Errorf("frame too short: %d bytes", len(body))
	}
	f.kind = body[0]
	f.from = binary.BigEndian.Uint32(body[1:])
	f.seq = binary.BigEndian.Uint32(body[5:])
	count := int(binary.BigEndian.Uint32(body[9:]))
	if len(body) != frameHeaderSize+8*count {
		return fmt.Errorf("frame payload size mismatch: %d elements in %d bytes",
			count, len(body)-frameHeaderSize)
	}
	if count > 0 {
		f.data = make([]int64, count)
		off := frameHeaderSize
		for i := range f.data {
			f.data[i] = int64(binary.BigEndian.Uint64(body[off:]))
			off += 8
		}
	}
	return nil
}

type frameCodec struct {
	encoder codec.Encoder
	decoder codec.Decoder
}

// newFrameCodec creates the length-prefixed frame codec used by every
// netsort TCP session.
func newFrameCodec() codec.Codec {
	bc := &baseFrameCodec{}
	_, decoder := length.New(bc, bc)
	return &frameCodec{encoder: bc, decoder: decoder}
}

func (c *frameCodec) Decode(in *buf.ByteBuf) (bool, interface{}, error) {
	return c.decoder.Decode(in)
}

func (c *frameCodec) Encode(data interface{}, out *buf.ByteBuf) error {
	return c.encoder.Encode(data, out)
}

type baseFrameCodec struct{}

func (c *baseFrameCodec) Decode(in *buf.ByteBuf) (bool, interface{}, error) {
	body := in.GetMarkedRemindData()
	f := &frame{}
	if err := f.unmarshal(body); err != nil {
		return false, nil, err
	}
	in.MarkedBytesReaded()
	return true, f, nil
}

func (c *baseFrameCodec) Encode(data interface{}, out *buf.ByteBuf) error {
	f, ok := data.(*frame)
	if !ok {
		return fmt.Errorf("not support %T %+v", data, data)
	}
	body := f.marshal()
	buf.MustWriteInt(out, len(body))
	index := out.GetWriteIndex()
	out.Expansion(len(body))
	copy(out.RawBuf()[index:index+len(body)], body)
	out.SetWriterIndex(index + len(body))
	return nil
}
