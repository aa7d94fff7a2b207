/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package persist

import (
	"sync"

	"github.com/fxamacker/cbor/v2"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
	"github.com/nutsdb/nutsdb"

	libjob "github.com/sabouaram/sysinit/job"
)

const (
	bucketMeta  = "meta"
	bucketFrame = "frame"
	bucketUnits = "units"
	bucketSubs  = "subs"
	bucketJobs  = "jobs"
	bucketChild = "childs"

	keyHead  = "head"
	keyFrame = "last"
	keyJobs  = "runs"
	keyChild = "index"

	storeVersion uint16 = 1
)

var storeMagic = []byte{'S', 'Y', 'R', 'J'}

type model struct {
	m sync.Mutex

	db  *nutsdb.DB
	log liblog.FuncLog
	ena bool
}

func open(dir string, log liblog.FuncLog) (Journal, liberr.Error) {
	if dir == "" {
		return nil, ErrorParamEmpty.Error(nil)
	}

	db, e := nutsdb.Open(nutsdb.DefaultOptions, nutsdb.WithDir(dir))
	if e != nil {
		return nil, ErrorStoreOpen.Error(e)
	}

	o := &model{
		db:  db,
		log: log,
	}

	head, err := o.get(bucketMeta, keyHead)
	if err == nil && len(head) == 6 && string(head[:4]) == string(storeMagic) &&
		uint16(head[4])|uint16(head[5])<<8 == storeVersion {
		o.ena = true
	} else {
		// fresh or incompatible layout: start clean
		o.ena = false

		h := make([]byte, 6)
		copy(h, storeMagic)
		h[4] = byte(storeVersion)
		h[5] = byte(storeVersion >> 8)

		if err = o.put(bucketMeta, keyHead, h); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return o, nil
}

func (o *model) logger() liblog.Logger {
	if o.log == nil {
		return liblog.GetDefault()
	} else if l := o.log(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

func (o *model) Enabled() bool {
	o.m.Lock()
	defer o.m.Unlock()
	return o.ena
}

func (o *model) put(bucket, key string, val []byte) liberr.Error {
	e := o.db.Update(func(tx *nutsdb.Tx) error {
		return tx.Put(bucket, []byte(key), pack(val), 0)
	})

	if e != nil {
		return ErrorStoreWrite.Error(e)
	}

	return nil
}

func (o *model) get(bucket, key string) ([]byte, liberr.Error) {
	var raw []byte

	e := o.db.View(func(tx *nutsdb.Tx) error {
		ent, err := tx.Get(bucket, []byte(key))
		if err != nil {
			return err
		}

		raw = make([]byte, len(ent.Value))
		copy(raw, ent.Value)
		return nil
	})

	if e != nil {
		return nil, ErrorStoreNotFound.Error(e)
	}

	b, e := unpack(raw)
	if e != nil {
		return nil, ErrorStoreRead.Error(e)
	}

	return b, nil
}

func (o *model) del(bucket, key string) {
	_ = o.db.Update(func(tx *nutsdb.Tx) error {
		return tx.Delete(bucket, []byte(key))
	})
}

func (o *model) keys(bucket string) []string {
	var res = make([]string, 0)

	_ = o.db.View(func(tx *nutsdb.Tx) error {
		ents, err := tx.GetAll(bucket)
		if err != nil {
			return err
		}

		for _, ent := range ents {
			res = append(res, string(ent.Key))
		}

		return nil
	})

	return res
}

func (o *model) SetLastFrame(f Frame) liberr.Error {
	b, e := cbor.Marshal(f)
	if e != nil {
		return ErrorEncode.Error(e)
	}

	return o.put(bucketFrame, keyFrame, b)
}

func (o *model) LastFrame() (Frame, bool) {
	var f Frame

	b, err := o.get(bucketFrame, keyFrame)
	if err != nil {
		return f, false
	}

	if e := cbor.Unmarshal(b, &f); e != nil {
		o.logger().Entry(loglvl.ErrorLevel, "cannot decode last frame marker").
			ErrorAdd(true, e).
			Log()
		return f, false
	}

	return f, f.Kind != FrameNone
}

func (o *model) ClearLastFrame() {
	o.del(bucketFrame, keyFrame)
}

func (o *model) UnitPut(id string, rec UnitRecord) liberr.Error {
	b, e := cbor.Marshal(rec)
	if e != nil {
		return ErrorEncode.Error(e)
	}

	return o.put(bucketUnits, id, b)
}

func (o *model) UnitGet(id string) (UnitRecord, liberr.Error) {
	var rec UnitRecord

	b, err := o.get(bucketUnits, id)
	if err != nil {
		return rec, err
	}

	if e := cbor.Unmarshal(b, &rec); e != nil {
		return rec, ErrorDecode.Error(e)
	}

	return rec, nil
}

func (o *model) UnitKeys() []string {
	return o.keys(bucketUnits)
}

func (o *model) UnitDel(id string) {
	o.del(bucketUnits, id)
	o.del(bucketSubs, id)
}

func (o *model) SubPut(id string, data []byte) liberr.Error {
	return o.put(bucketSubs, id, data)
}

func (o *model) SubGet(id string) ([]byte, liberr.Error) {
	return o.get(bucketSubs, id)
}

func (o *model) JobsPut(recs []libjob.Record) liberr.Error {
	b, e := cbor.Marshal(recs)
	if e != nil {
		return ErrorEncode.Error(e)
	}

	return o.put(bucketJobs, keyJobs, b)
}

func (o *model) JobsGet() ([]libjob.Record, liberr.Error) {
	b, err := o.get(bucketJobs, keyJobs)
	if err != nil {
		return nil, err
	}

	var recs []libjob.Record
	if e := cbor.Unmarshal(b, &recs); e != nil {
		return nil, ErrorDecode.Error(e)
	}

	return recs, nil
}

func (o *model) ChildPut(data map[string][]int) liberr.Error {
	b, e := cbor.Marshal(data)
	if e != nil {
		return ErrorEncode.Error(e)
	}

	return o.put(bucketChild, keyChild, b)
}

func (o *model) ChildGet() (map[string][]int, liberr.Error) {
	b, err := o.get(bucketChild, keyChild)
	if err != nil {
		return nil, err
	}

	var data map[string][]int
	if e := cbor.Unmarshal(b, &data); e != nil {
		return nil, ErrorDecode.Error(e)
	}

	return data, nil
}

func (o *model) Close() error {
	return o.db.Close()
}
