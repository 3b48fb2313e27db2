// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegh

import (
	"fmt"
	"math"

	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/naza/pkg/bele"
	"github.com/q191201771/naza/pkg/nazabits"
	"github.com/q191201771/naza/pkg/nazabytes"
)

type IMhasReaderObserver interface {
	// OnFormat 每个子流label第一次出现CONFIG时回调一次，label不变时后续的CONFIG不再回调
	OnFormat(format Format)

	// OnSampleData 按顺序输出access unit的原始字节，一个access unit可能分多次回调
	//
	// @param b: 函数调用结束后，内部不持有该内存块
	OnSampleData(b []byte)

	// OnSampleMetadata 一个access unit的所有字节都通过 OnSampleData 输出后回调
	//
	// @param timeUs: 微秒
	// @param flags:  SampleFlagKeyFrame
	// @param size:   access unit的总字节数
	OnSampleMetadata(timeUs int64, flags int, size int)
}

type (
	onFormatFn         func(format Format)
	onSampleDataFn     func(b []byte)
	onSampleMetadataFn func(timeUs int64, flags int, size int)
)

type MhasReaderOption struct {
	// FormatId 透传给 Format.Id
	FormatId string

	// LogDumpDebugMaxNum 日志级别为debug时，dump包头的次数上限
	LogDumpDebugMaxNum int

	// MaxPayloadLength 大于0时，包头中声明的payload长度超过该值被视为格式错误
	MaxPayloadLength int

	// MaxPendingAuSize 等待随机访问点期间，缓存的access unit大小上限，超过后丢弃该access unit
	// 小于等于0时，根据 MaxPayloadLength 计算，MaxPayloadLength 也没有设置时使用 defaultMaxPendingAuSize
	MaxPendingAuSize int

	Decoder IMhasBitstreamDecoder
}

var defaultMhasReaderOption = MhasReaderOption{
	FormatId:           "",
	LogDumpDebugMaxNum: 10,
	MaxPayloadLength:   0,
	MaxPendingAuSize:   0,
	Decoder:            DefaultMhasBitstreamDecoder,
}

type ModMhasReaderOption func(option *MhasReaderOption)

const defaultMaxPendingAuSize = 4 * 1024 * 1024

type readerState int

const (
	readerStateFindingSync readerState = iota
	readerStateReadingHeader
	readerStateReadingPayload
)

func (s readerState) ReadableString() string {
	switch s {
	case readerStateFindingSync:
		return "FINDING_SYNC"
	case readerStateReadingHeader:
		return "READING_HEADER"
	case readerStateReadingPayload:
		return "READING_PAYLOAD"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

const timeUnsetFloat = float64(base.TimeUnset)

// MhasReader 增量解析MHAS码流，输入可以在任意字节处切分
//
// 使用方式:
//   NewMhasReader -> WithObserver(或WithCallbackFunc)
//   -> { PacketStarted -> Consume... -> PacketFinished }...
//   出现不连续时调用 Seek
//
// 非协程安全，每个流使用独立的reader
type MhasReader struct {
	uniqueKey string
	option    MhasReaderOption
	logDump   base.LogDump

	onFormat         onFormatFn
	onSampleData     onSampleDataFn
	onSampleMetadata onSampleMetadataFn

	state     readerState
	flags     int
	syncBytes uint32

	// 包头暂存区，固定读满 MaxMhasPacketHeaderSize 字节后解析，包头之后的部分属于当前包的payload
	headerScratch      stagedBytes
	headerDataFinished bool

	// CONFIG和TRUNCATION的payload需要完整缓存后再解析
	dataScratch stagedBytes

	header           MhasPacketHeader
	payloadBytesRead int
	frameBytes       int

	samplingRate        int
	standardFrameLength int
	truncationSamples   int
	mainStreamLabel     int64
	configFound         bool

	timeUs        float64
	timeUsPending float64
	dataPending   bool
	rapPending    bool

	// rapPending期间当前access unit的字节先缓存在这里，确认是关键帧后再输出，否则丢弃
	pendingAu        *nazabytes.Buffer
	pendingAuDropped bool
}

func NewMhasReader(modOptions ...ModMhasReaderOption) *MhasReader {
	option := defaultMhasReaderOption
	for _, fn := range modOptions {
		fn(&option)
	}
	if option.Decoder == nil {
		option.Decoder = DefaultMhasBitstreamDecoder
	}
	if option.MaxPendingAuSize <= 0 {
		if option.MaxPayloadLength > 0 {
			option.MaxPendingAuSize = 4 * (option.MaxPayloadLength + MaxMhasPacketHeaderSize)
		} else {
			option.MaxPendingAuSize = defaultMaxPendingAuSize
		}
	}

	uk := base.GenUkMhasReader()
	r := &MhasReader{
		uniqueKey:     uk,
		option:        option,
		logDump:       base.NewLogDump(Log, option.LogDumpDebugMaxNum),
		headerScratch: newStagedBytes(MaxMhasPacketHeaderSize),
		pendingAu:     nazabytes.NewBuffer(4096),
	}
	r.Seek()
	Log.Debugf("[%s] lifecycle new mhas reader. option=%+v", uk, option)
	return r
}

func (r *MhasReader) WithObserver(obs IMhasReaderObserver) *MhasReader {
	r.onFormat = obs.OnFormat
	r.onSampleData = obs.OnSampleData
	r.onSampleMetadata = obs.OnSampleMetadata
	return r
}

func (r *MhasReader) WithCallbackFunc(onFormat onFormatFn, onSampleData onSampleDataFn, onSampleMetadata onSampleMetadataFn) *MhasReader {
	r.onFormat = onFormat
	r.onSampleData = onSampleData
	r.onSampleMetadata = onSampleMetadata
	return r
}

func (r *MhasReader) UniqueKey() string {
	return r.uniqueKey
}

// Seek 丢弃所有缓存以及时间戳状态，回到查找同步字的状态
func (r *MhasReader) Seek() {
	r.state = readerStateFindingSync
	r.syncBytes = 0
	r.headerScratch.pos = 0
	r.dataScratch.pos = 0
	r.dataScratch.limit = 0
	r.header = MhasPacketHeader{}
	r.headerDataFinished = false
	r.payloadBytesRead = 0
	r.frameBytes = 0
	r.samplingRate = -1
	r.standardFrameLength = -1
	r.truncationSamples = 0
	r.mainStreamLabel = -1
	r.configFound = false
	r.dataPending = false
	r.rapPending = true
	r.timeUs = timeUnsetFloat
	r.timeUsPending = timeUnsetFloat
	r.pendingAu.Reset()
	r.pendingAuDropped = false
	r.logDump.Reset()
}

// PacketStarted 上层容器的一个新包(比如PES)开始
//
// @param pesTimeUs: 微秒，没有时间戳时传入 base.TimeUnset
// @param flags:     FlagRandomAccessIndicator | FlagDataAlignmentIndicator
func (r *MhasReader) PacketStarted(pesTimeUs int64, flags int) {
	r.flags = flags
	if flags&FlagRandomAccessIndicator == 0 {
		// 与上一个包不一定连续，不能和上一个包残留的字节拼成同步字
		r.syncBytes = 0
	}

	// 上一个access unit还没有结束(frame没有读完，或者包头没有读完)，新的时间戳需要等到该access unit结束后才能使用
	if !r.rapPending && (r.frameBytes != 0 || !r.headerDataFinished) {
		r.dataPending = true
	}

	if pesTimeUs != base.TimeUnset {
		if r.dataPending {
			r.timeUsPending = float64(pesTimeUs)
		} else {
			r.timeUs = float64(pesTimeUs)
		}
	}
}

// Consume
//
// @param b: 函数调用结束后，内部不持有该内存块
//
// @return err: 码流格式错误时返回，调用方应该调用 Seek 后再继续
func (r *MhasReader) Consume(b []byte) error {
	if r.onSampleData == nil || r.onSampleMetadata == nil {
		return base.ErrMpeghNotBound
	}

	data := wrapStagedBytes(b)
	for data.bytesLeft() > 0 {
		switch r.state {
		case readerStateFindingSync:
			if r.skipToNextSync(&data) {
				r.state = readerStateReadingHeader
			}
		case readerStateReadingHeader:
			r.maybeAdjustHeaderScratchBuffer()
			if continueRead(&data, &r.headerScratch, MaxMhasPacketHeaderSize) {
				if err := r.parseHeader(); err != nil {
					return err
				}
				r.emit(r.headerScratch.take(r.header.HeaderLength))
				r.state = readerStateReadingPayload
			}
		case readerStateReadingPayload:
			r.maybeCopyToDataScratchBuffer(&data)
			r.writeSampleData(&data)
			if r.payloadBytesRead == r.header.PacketLength {
				if err := r.onPayloadFinished(); err != nil {
					return err
				}
				r.state = readerStateReadingHeader
			}
		default:
			panic(fmt.Sprintf("[%s] invalid reader state. state=%s", r.uniqueKey, r.state.ReadableString()))
		}
	}
	return nil
}

func (r *MhasReader) PacketFinished(isEndOfInput bool) {
	if isEndOfInput {
		Log.Debugf("[%s] end of input. state=%s, frameBytes=%d", r.uniqueKey, r.state.ReadableString(), r.frameBytes)
	}
}

// ---------------------------------------------------------------------------------------------------------------------

// skipToNextSync
//
// @return 是否找到同步点。找到时`data`的读位置指向同步字的第一个字节，否则读位置移动到末尾
func (r *MhasReader) skipToNextSync(data *stagedBytes) bool {
	if r.flags&FlagRandomAccessIndicator == 0 {
		// 不是随机访问点，丢弃
		data.pos = data.limit
		r.syncBytes = 0
		return false
	}

	if r.flags&FlagDataAlignmentIndicator != 0 {
		return true
	}

	for data.bytesLeft() > 0 {
		r.syncBytes = r.syncBytes<<8 | uint32(data.take(1)[0])
		if IsMhasSyncWord(r.syncBytes) {
			if data.pos >= MhasSyncWordLength {
				data.pos -= MhasSyncWordLength
			} else {
				// 同步字跨越了两次Consume，前面的字节已经不在`data`中了，直接放入包头暂存区
				bele.BePutUint24(r.headerScratch.data, MhasSyncWord)
				r.headerScratch.pos = MhasSyncWordLength
			}
			r.syncBytes = 0
			return true
		}
	}
	return false
}

func (r *MhasReader) parseHeader() error {
	r.headerScratch.pos = 0
	br := nazabits.NewBitReader(r.headerScratch.data[:MaxMhasPacketHeaderSize])
	h, err := r.option.Decoder.DecodeHeader(&br)
	if err != nil {
		return err
	}
	if h.HeaderLength <= 0 || h.HeaderLength > MaxMhasPacketHeaderSize {
		return base.NewErrMpegh("invalid header length. %s", h.DebugString())
	}
	if r.option.MaxPayloadLength > 0 && h.PacketLength > r.option.MaxPayloadLength {
		return base.NewErrMpeghUnsupported("packet length exceeds limit. %s, limit=%d", h.DebugString(), r.option.MaxPayloadLength)
	}
	if r.logDump.ShouldDump() {
		r.logDump.Outf("[%s] mhas packet. %s, header=\n%s", r.uniqueKey, h.DebugString(), base.HexPrefix(r.headerScratch.data, h.HeaderLength))
	}

	r.header = h
	r.payloadBytesRead = 0
	r.frameBytes += h.PacketLength + h.HeaderLength

	if h.PacketType.Kind().needsPayloadScratch() {
		r.dataScratch.reset(h.PacketLength)
	}
	r.headerDataFinished = true
	return nil
}

// maybeAdjustHeaderScratchBuffer 包头解析完后，暂存区中没有被消费的字节移动到头部
func (r *MhasReader) maybeAdjustHeaderScratchBuffer() {
	if r.headerDataFinished && r.headerScratch.pos > 0 {
		r.headerScratch.compact()
		r.headerDataFinished = false
	}
}

func (r *MhasReader) headerScratchHasPayload() bool {
	return r.headerScratch.pos != MaxMhasPacketHeaderSize
}

func (r *MhasReader) maybeCopyToDataScratchBuffer(data *stagedBytes) {
	if !r.header.PacketType.Kind().needsPayloadScratch() {
		return
	}
	if r.headerScratchHasPayload() {
		copyData(&r.headerScratch, &r.dataScratch, r.header.PacketLength)
	}
	copyData(data, &r.dataScratch, r.header.PacketLength)
}

func (r *MhasReader) writeSampleData(data *stagedBytes) {
	if r.headerScratchHasPayload() {
		n := minInt(r.headerScratch.bytesLeft(), r.header.PacketLength-r.payloadBytesRead)
		r.emit(r.headerScratch.take(n))
		r.payloadBytesRead += n
	}
	n := minInt(data.bytesLeft(), r.header.PacketLength-r.payloadBytesRead)
	r.emit(data.take(n))
	r.payloadBytesRead += n
}

func (r *MhasReader) onPayloadFinished() error {
	switch r.header.PacketType.Kind() {
	case MhasPacketKindConfig:
		br := nazabits.NewBitReader(r.dataScratch.data[:r.header.PacketLength])
		config, err := r.option.Decoder.DecodeConfig(&br)
		if err != nil {
			return err
		}
		r.onConfig(config)
	case MhasPacketKindAudioTruncation:
		br := nazabits.NewBitReader(r.dataScratch.data[:r.header.PacketLength])
		n, err := r.option.Decoder.DecodeTruncation(&br)
		if err != nil {
			return err
		}
		r.truncationSamples = n
	case MhasPacketKindAudioFrame:
		r.finalizeFrame()
	case MhasPacketKindOther:
		// noop
	}
	return nil
}

func (r *MhasReader) onConfig(config Mpegh3daConfig) {
	r.samplingRate = config.SamplingFrequency
	r.standardFrameLength = config.StandardFrameSamples

	if r.mainStreamLabel != int64(r.header.PacketLabel) {
		r.mainStreamLabel = int64(r.header.PacketLabel)

		format := Format{
			Id:             r.option.FormatId,
			SampleMimeType: MimeTypeAudioMpeghMhm1,
			SampleRate:     r.samplingRate,
			Codecs:         config.Codecs(),
		}
		if len(config.CompatibleProfileLevelSet) > 0 {
			// 第一个元素为audio specific config预留
			format.InitializationData = [][]byte{{}, config.CompatibleProfileLevelSet}
		}
		Log.Infof("[%s] mhas format. label=%d, %s", r.uniqueKey, r.mainStreamLabel, format.DebugString())
		if r.onFormat != nil {
			r.onFormat(format)
		}
	}
	r.configFound = true
}

func (r *MhasReader) finalizeFrame() {
	flags := 0
	if r.configFound && !r.pendingAuDropped {
		flags = SampleFlagKeyFrame
		r.rapPending = false
	}

	var durationUs float64
	if r.samplingRate > 0 {
		durationUs = float64(base.MicrosPerSecond) * float64(r.standardFrameLength-r.truncationSamples) / float64(r.samplingRate)
	}

	if r.timeUs == timeUnsetFloat {
		Log.Warnf("[%s] no timestamp before first frame, start from 0.", r.uniqueKey)
		r.timeUs = 0
	}
	pts := int64(math.Round(r.timeUs))
	if r.dataPending && r.timeUsPending != timeUnsetFloat {
		r.dataPending = false
		r.timeUs = r.timeUsPending
		r.timeUsPending = timeUnsetFloat
	} else {
		r.dataPending = false
		r.timeUs += durationUs
	}

	if flags&SampleFlagKeyFrame != 0 && r.pendingAu.Len() > 0 {
		r.onSampleData(r.pendingAu.Bytes())
	}
	r.pendingAu.Reset()
	r.pendingAuDropped = false

	if !r.rapPending {
		r.onSampleMetadata(pts, flags, r.frameBytes)
	} else {
		Log.Debugf("[%s] drop frame before random access point. pts=%d, size=%d", r.uniqueKey, pts, r.frameBytes)
	}

	r.configFound = false
	r.truncationSamples = 0
	r.frameBytes = 0
}

// emit rapPending期间缓存，否则直接输出
func (r *MhasReader) emit(b []byte) {
	if len(b) == 0 {
		return
	}
	if r.rapPending {
		if r.pendingAuDropped {
			return
		}
		if r.pendingAu.Len()+len(b) > r.option.MaxPendingAuSize {
			Log.Warnf("[%s] pending access unit too large, drop it. size=%d, limit=%d",
				r.uniqueKey, r.pendingAu.Len()+len(b), r.option.MaxPendingAuSize)
			r.pendingAu.Reset()
			r.pendingAuDropped = true
			return
		}
		r.pendingAu.Write(b)
		return
	}
	r.onSampleData(b)
}
