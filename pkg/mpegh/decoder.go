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
	"math/bits"
	"strconv"
	"strings"

	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/naza/pkg/nazabits"
	"github.com/q191201771/naza/pkg/nazaerrors"
)

// IMhasBitstreamDecoder MHAS码流的比特级语法解析
//
// 每次调用传入的BitReader都指向待解析内容的起始位置，并且只覆盖缓存中相关的字节
type IMhasBitstreamDecoder interface {
	DecodeHeader(br *nazabits.BitReader) (MhasPacketHeader, error)
	DecodeConfig(br *nazabits.BitReader) (Mpegh3daConfig, error)
	DecodeTruncation(br *nazabits.BitReader) (int, error)
}

// Mpegh3daConfig
//
// SamplingFrequency 和 StandardFrameSamples 已经按resampling ratio换算过，也即解码输出的值
type Mpegh3daConfig struct {
	ProfileLevelIndication    int // -1表示未设置
	SamplingFrequency         int
	StandardFrameSamples      int
	CompatibleProfileLevelSet []byte
}

// Codecs e.g. mhm1.0D
func (c Mpegh3daConfig) Codecs() string {
	if c.ProfileLevelIndication < 0 {
		return CodecsMhm1
	}
	return fmt.Sprintf("%s.%02X", CodecsMhm1, c.ProfileLevelIndication)
}

// ProfileLevelIndicationOfCodecs Codecs 的逆过程
//
// @return ok: `codecs`中不包含profile level时为false
func ProfileLevelIndicationOfCodecs(codecs string) (pli int, ok bool) {
	if !strings.HasPrefix(codecs, CodecsMhm1+".") {
		return 0, false
	}
	v, err := strconv.ParseUint(codecs[len(CodecsMhm1)+1:], 16, 8)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// MhasBitstreamDecoder 默认的 IMhasBitstreamDecoder 实现
type MhasBitstreamDecoder struct{}

var DefaultMhasBitstreamDecoder IMhasBitstreamDecoder = MhasBitstreamDecoder{}

// DecodeHeader
//
// 返回的 MhasPacketHeader.HeaderLength 为包头实际占用的字节数
func (MhasBitstreamDecoder) DecodeHeader(br *nazabits.BitReader) (h MhasPacketHeader, err error) {
	c := newBitCursor(br)

	var v uint64
	if v, err = c.readEscapedValue(3, 8, 8); err != nil {
		return h, err
	}
	h.PacketType = MhasPacketType(v)

	if h.PacketLabel, err = c.readEscapedValue(2, 8, 32); err != nil {
		return h, err
	}
	if h.PacketLabel > MaxMhasPacketLabel {
		return h, base.NewErrMpeghUnsupported("invalid packet label. label=%d", h.PacketLabel)
	}
	if h.PacketLabel == 0 {
		switch h.PacketType.Kind() {
		case MhasPacketKindConfig, MhasPacketKindAudioTruncation, MhasPacketKindAudioFrame:
			return h, base.NewErrMpegh("%s packet with invalid packet label 0", h.PacketType.ReadableString())
		}
	}

	if v, err = c.readEscapedValue(11, 24, 24); err != nil {
		return h, err
	}
	h.PacketLength = int(v)

	// 三个字段的各种组合加起来都是8的整数倍，这里向上取整只是为了保险
	h.HeaderLength = int((c.bitsRead() + 7) / 8)
	return h, nil
}

// DecodeConfig
//
// <ISO_IEC_23008-3.pdf> <5.2.2.1 Syntax of mpegh3daConfig()>
// ----------------------------------------------------------
// mpegh3daProfileLevelIndication [8b]
// usacSamplingFrequencyIndex     [5b] 0x1f时后跟usacSamplingFrequency [24b]
// coreSbrFrameLengthIndex        [3b]
// cfg_reserved                   [1b]
// receiverDelayCompensation      [1b]
// SpeakerConfig3d()
// FrameworkConfig3d()
// mpegh3daDecoderConfig()
// usacConfigExtensionPresent     [1b]
// mpegh3daConfigExtension()
func (MhasBitstreamDecoder) DecodeConfig(br *nazabits.BitReader) (config Mpegh3daConfig, err error) {
	c := newBitCursor(br)

	var v uint32
	if v, err = c.readBits(8); err != nil {
		return config, err
	}
	config.ProfileLevelIndication = int(v)

	var usacSamplingFrequency int
	if v, err = c.readBits(5); err != nil {
		return config, err
	}
	if v == 0x1f {
		if v, err = c.readBits(24); err != nil {
			return config, err
		}
		usacSamplingFrequency = int(v)
	} else if usacSamplingFrequency, err = samplingFrequencyOfIndex(int(v)); err != nil {
		return config, err
	}

	if v, err = c.readBits(3); err != nil {
		return config, err
	}
	coreSbrFrameLengthIndex := int(v)
	outputFrameLength, err := outputFrameLengthOfIndex(coreSbrFrameLengthIndex)
	if err != nil {
		return config, err
	}
	sbrRatioIndex := sbrRatioIndexOfIndex(coreSbrFrameLengthIndex)

	// cfg_reserved, receiverDelayCompensation
	if err = c.skipBits(2); err != nil {
		return config, err
	}

	// referenceLayout
	if err = c.skipSpeakerConfig3d(); err != nil {
		return config, err
	}
	numSignals, err := c.parseSignals3d()
	if err != nil {
		return config, err
	}
	if err = c.skipMpegh3daDecoderConfig(numSignals, sbrRatioIndex); err != nil {
		return config, err
	}

	usacConfigExtensionPresent, err := c.readFlag()
	if err != nil {
		return config, err
	}
	if usacConfigExtensionPresent {
		if config.CompatibleProfileLevelSet, err = c.parseConfigExtension(); err != nil {
			return config, err
		}
	}

	ratio, err := resamplingRatioOf(usacSamplingFrequency)
	if err != nil {
		return config, err
	}
	config.SamplingFrequency = int(float64(usacSamplingFrequency) * ratio)
	config.StandardFrameSamples = int(float64(outputFrameLength) * ratio)
	return config, nil
}

// DecodeTruncation
//
// <ISO_IEC_23008-3.pdf> <Table 226 - Syntax of AudioTruncationInfo()>
// ------------------------------------------------------------------
// isActive       [1b]
// ati_reserved   [1b]
// truncFromBegin [1b]
// nTruncSamples  [13b]
func (MhasBitstreamDecoder) DecodeTruncation(br *nazabits.BitReader) (int, error) {
	c := newBitCursor(br)
	isActive, err := c.readFlag()
	if err != nil {
		return 0, err
	}
	if !isActive {
		return 0, nil
	}
	if err = c.skipBits(2); err != nil {
		return 0, err
	}
	v, err := c.readBits(13)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// ----- mpegh3daConfig ------------------------------------------------------------------------------------------------

const (
	signalGroupTypeChannels = 0
	signalGroupTypeSaoc     = 2

	usacElementTypeSce = 0
	usacElementTypeCpe = 1
	usacElementTypeExt = 3

	configExtTypeCompatibleProfileLevelSet = 7
)

// <ISO_IEC_23008-3.pdf> <Table 32 - Syntax of SpeakerConfig3d()>
func (c *bitCursor) skipSpeakerConfig3d() error {
	speakerLayoutType, err := c.readBits(2)
	if err != nil {
		return err
	}
	if speakerLayoutType == 0 {
		// CICPspeakerLayoutIdx
		return c.skipBits(6)
	}

	v, err := c.readEscapedValue(5, 8, 16)
	if err != nil {
		return err
	}
	numSpeakers := int(v) + 1

	switch speakerLayoutType {
	case 1:
		// CICPspeakerIdx per speaker
		return c.skipBits(uint(7 * numSpeakers))
	case 2:
		return c.skipFlexibleSpeakerConfig(numSpeakers)
	}
	return nil
}

// <ISO_IEC_23008-3.pdf> <Table 34 - Syntax of mpegh3daFlexibleSpeakerConfig()>
func (c *bitCursor) skipFlexibleSpeakerConfig(numSpeakers int) error {
	angularPrecision, err := c.readFlag()
	if err != nil {
		return err
	}
	precisionDegrees, elevationBits, azimuthBits := 5, uint(5), uint(6)
	if angularPrecision {
		precisionDegrees, elevationBits, azimuthBits = 1, 7, 8
	}

	for i := 0; i < numSpeakers; i++ {
		azimuthAngle := 0

		isCicpSpeakerIdx, err := c.readFlag()
		if err != nil {
			return err
		}
		if isCicpSpeakerIdx {
			if err = c.skipBits(7); err != nil {
				return err
			}
		} else {
			elevationClass, err := c.readBits(2)
			if err != nil {
				return err
			}
			if elevationClass == 3 {
				idx, err := c.readBits(elevationBits)
				if err != nil {
					return err
				}
				if int(idx)*precisionDegrees != 0 {
					// elevationDirection
					if err = c.skipBits(1); err != nil {
						return err
					}
				}
			}
			idx, err := c.readBits(azimuthBits)
			if err != nil {
				return err
			}
			azimuthAngle = int(idx) * precisionDegrees
			if azimuthAngle != 0 && azimuthAngle != 180 {
				// azimuthDirection
				if err = c.skipBits(1); err != nil {
					return err
				}
			}
			// isLFE
			if err = c.skipBits(1); err != nil {
				return err
			}
		}

		if azimuthAngle != 0 && azimuthAngle != 180 {
			alsoAddSymmetricPair, err := c.readFlag()
			if err != nil {
				return err
			}
			if alsoAddSymmetricPair {
				i++
			}
		}
	}
	return nil
}

// parseSignals3d 返回信号总数
//
// <ISO_IEC_23008-3.pdf> <Table 36 - Syntax of Signals3d()>
func (c *bitCursor) parseSignals3d() (int, error) {
	numSignalGroups, err := c.readBits(5)
	if err != nil {
		return 0, err
	}

	numSignals := 0
	for grp := 0; grp < int(numSignalGroups)+1; grp++ {
		signalGroupType, err := c.readBits(3)
		if err != nil {
			return 0, err
		}
		v, err := c.readEscapedValue(5, 8, 16)
		if err != nil {
			return 0, err
		}
		numSignals += int(v) + 1

		if signalGroupType == signalGroupTypeChannels || signalGroupType == signalGroupTypeSaoc {
			differsFromReferenceLayout, err := c.readFlag()
			if err != nil {
				return 0, err
			}
			if differsFromReferenceLayout {
				// audioChannelLayout[grp]
				if err = c.skipSpeakerConfig3d(); err != nil {
					return 0, err
				}
			}
		}
	}
	return numSignals, nil
}

// <ISO_IEC_23008-3.pdf> <Table 39 - Syntax of mpegh3daDecoderConfig()>
func (c *bitCursor) skipMpegh3daDecoderConfig(numSignals int, sbrRatioIndex int) error {
	v, err := c.readEscapedValue(4, 8, 16)
	if err != nil {
		return err
	}
	numElements := int(v) + 1

	// elementLengthPresent
	if err = c.skipBits(1); err != nil {
		return err
	}

	for i := 0; i < numElements; i++ {
		usacElementType, err := c.readBits(2)
		if err != nil {
			return err
		}

		switch usacElementType {
		case usacElementTypeSce:
			if _, err = c.parseCoreConfig(); err != nil {
				return err
			}
			if sbrRatioIndex > 0 {
				if err = c.skipSbrConfig(); err != nil {
					return err
				}
			}
		case usacElementTypeCpe:
			if err = c.skipCpeConfig(numSignals, sbrRatioIndex); err != nil {
				return err
			}
		case usacElementTypeExt:
			if err = c.skipExtElementConfig(); err != nil {
				return err
			}
		default:
			// ID_USAC_LFE 没有配置内容
		}
	}
	return nil
}

func (c *bitCursor) skipCpeConfig(numSignals int, sbrRatioIndex int) error {
	enhancedNoiseFilling, err := c.parseCoreConfig()
	if err != nil {
		return err
	}
	if enhancedNoiseFilling {
		// igfIndependentTiling
		if err = c.skipBits(1); err != nil {
			return err
		}
	}

	var stereoConfigIndex uint32
	if sbrRatioIndex > 0 {
		if err = c.skipSbrConfig(); err != nil {
			return err
		}
		if stereoConfigIndex, err = c.readBits(2); err != nil {
			return err
		}
	}

	if stereoConfigIndex > 0 {
		// Mps212Config()
		// bsFreqRes(3), bsFixedGainDMX(3)
		if err = c.skipBits(6); err != nil {
			return err
		}
		bsTempShapeConfig, err := c.readBits(2)
		if err != nil {
			return err
		}
		// bsDecorrConfig(2), bsHighRateMode(1), bsPhaseCoding(1)
		if err = c.skipBits(4); err != nil {
			return err
		}
		bsOttBandsPhasePresent, err := c.readFlag()
		if err != nil {
			return err
		}
		if bsOttBandsPhasePresent {
			if err = c.skipBits(5); err != nil {
				return err
			}
		}
		if stereoConfigIndex == 2 || stereoConfigIndex == 3 {
			// bsResidualBands(5), bsPseudoLr(1)
			if err = c.skipBits(6); err != nil {
				return err
			}
		}
		if bsTempShapeConfig == 2 {
			// bsEnvQuantMode
			if err = c.skipBits(1); err != nil {
				return err
			}
		}
	}

	// floor(log2(numSignals-1))+1
	nBits := uint(0)
	if numSignals > 1 {
		nBits = uint(bits.Len(uint(numSignals - 1)))
	}
	qceIndex, err := c.readBits(2)
	if err != nil {
		return err
	}
	if qceIndex > 0 {
		shiftIndex0, err := c.readFlag()
		if err != nil {
			return err
		}
		if shiftIndex0 {
			if err = c.skipBits(nBits); err != nil {
				return err
			}
		}
	}
	shiftIndex1, err := c.readFlag()
	if err != nil {
		return err
	}
	if shiftIndex1 {
		if err = c.skipBits(nBits); err != nil {
			return err
		}
	}
	if sbrRatioIndex == 0 && qceIndex == 0 {
		// lpdStereoIndex
		if err = c.skipBits(1); err != nil {
			return err
		}
	}
	return nil
}

func (c *bitCursor) skipExtElementConfig() error {
	// usacExtElementType
	if _, err := c.readEscapedValue(4, 8, 16); err != nil {
		return err
	}
	configLength, err := c.readEscapedValue(4, 8, 16)
	if err != nil {
		return err
	}
	defaultLengthPresent, err := c.readFlag()
	if err != nil {
		return err
	}
	if defaultLengthPresent {
		// usacExtElementDefaultLength
		if _, err = c.readEscapedValue(8, 16, 0); err != nil {
			return err
		}
	}
	// usacExtElementPayloadFrag
	if err = c.skipBits(1); err != nil {
		return err
	}
	return c.skipBits(uint(8 * configLength))
}

// parseCoreConfig 返回enhancedNoiseFilling
//
// <ISO_IEC_23008-3.pdf> <Table 41 - Syntax of mpegh3daCoreConfig()>
func (c *bitCursor) parseCoreConfig() (bool, error) {
	// tw_mdct(1), fullbandLpd(1), noiseFilling(1)
	if err := c.skipBits(3); err != nil {
		return false, err
	}
	enhancedNoiseFilling, err := c.readFlag()
	if err != nil {
		return false, err
	}
	if enhancedNoiseFilling {
		// igfUseEnf(1), igfUseHighRes(1), igfUseWhitening(1), igfAfterTnsSynth(1), igfStartIndex(5), igfStopIndex(4)
		if err = c.skipBits(13); err != nil {
			return false, err
		}
	}
	return enhancedNoiseFilling, nil
}

// <ISO_IEC_23003-3.pdf> <Table 14 - Syntax of SbrConfig()>
func (c *bitCursor) skipSbrConfig() error {
	// harmonicSBR(1), bs_interTes(1), bs_pvc(1), dflt_start_freq(4), dflt_stop_freq(4)
	if err := c.skipBits(11); err != nil {
		return err
	}
	dfltHeaderExtra1, err := c.readFlag()
	if err != nil {
		return err
	}
	dfltHeaderExtra2, err := c.readFlag()
	if err != nil {
		return err
	}
	if dfltHeaderExtra1 {
		// dflt_freq_scale(2), dflt_alter_scale(1), dflt_noise_bands(2)
		if err = c.skipBits(5); err != nil {
			return err
		}
	}
	if dfltHeaderExtra2 {
		// dflt_limiter_bands(2), dflt_limiter_gains(2), dflt_interpol_freq(1), dflt_smoothing_mode(1)
		if err = c.skipBits(6); err != nil {
			return err
		}
	}
	return nil
}

// parseConfigExtension 只关心CompatibleProfileLevelSet，其他扩展跳过
//
// <ISO_IEC_23008-3.pdf> <Table 53 - Syntax of mpegh3daConfigExtension()>
func (c *bitCursor) parseConfigExtension() (compatibleProfileLevelSet []byte, err error) {
	v, err := c.readEscapedValue(2, 4, 8)
	if err != nil {
		return nil, err
	}
	numConfigExtensions := int(v) + 1

	for i := 0; i < numConfigExtensions; i++ {
		extType, err := c.readEscapedValue(4, 8, 16)
		if err != nil {
			return nil, err
		}
		extLength, err := c.readEscapedValue(4, 8, 16)
		if err != nil {
			return nil, err
		}

		if extType != configExtTypeCompatibleProfileLevelSet {
			if err = c.skipBits(uint(8 * extLength)); err != nil {
				return nil, err
			}
			continue
		}

		// bsNumCompatibleSets(4), reserved(4), CompatibleSetIndication[8b]...
		n, err := c.readBits(4)
		if err != nil {
			return nil, err
		}
		if err = c.skipBits(4); err != nil {
			return nil, err
		}
		compatibleProfileLevelSet = make([]byte, int(n)+1)
		for j := range compatibleProfileLevelSet {
			b, err := c.readBits(8)
			if err != nil {
				return nil, err
			}
			compatibleProfileLevelSet[j] = uint8(b)
		}
	}
	return compatibleProfileLevelSet, nil
}

// ----- tables --------------------------------------------------------------------------------------------------------

// <ISO_IEC_23003-3.pdf> <Table 72 - Sampling frequency mapping>，14和15保留
var usacSamplingFrequencyTable = []int{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050,
	16000, 12000, 11025, 8000, 7350, -1, -1, 57600,
	51200, 40000, 38400, 34150, 28800, 25600, 20000, 19200,
	17075, 14400, 12800, 9600,
}

func samplingFrequencyOfIndex(index int) (int, error) {
	if index < 0 || index >= len(usacSamplingFrequencyTable) || usacSamplingFrequencyTable[index] < 0 {
		return -1, base.NewErrMpeghUnsupported("unsupported sampling frequency index. index=%d", index)
	}
	return usacSamplingFrequencyTable[index], nil
}

// <ISO_IEC_23008-3.pdf> <Table 75 - Values of coreCoderFrameLength ... depending on coreSbrFrameLengthIndex>
func outputFrameLengthOfIndex(coreSbrFrameLengthIndex int) (int, error) {
	switch coreSbrFrameLengthIndex {
	case 0:
		return 768, nil
	case 1:
		return 1024, nil
	case 2, 3:
		return 2048, nil
	case 4:
		return 4096, nil
	}
	return -1, base.NewErrMpeghUnsupported("unsupported coreSbrFrameLengthIndex. index=%d", coreSbrFrameLengthIndex)
}

func sbrRatioIndexOfIndex(coreSbrFrameLengthIndex int) int {
	switch coreSbrFrameLengthIndex {
	case 2:
		return 2
	case 3:
		return 3
	case 4:
		return 1
	}
	return 0
}

// resamplingRatioOf 解码器内部采样率到输出采样率的换算系数
//
// <ISO_IEC_23008-3.pdf> <Table 10 - MPEG-H 3DA resampling ratios>
func resamplingRatioOf(usacSamplingFrequency int) (float64, error) {
	switch usacSamplingFrequency {
	case 96000, 88200, 48000, 44100:
		return 1, nil
	case 64000, 58800, 32000, 29400:
		return 1.5, nil
	case 24000, 22050:
		return 2, nil
	case 16000, 14700:
		return 3, nil
	}
	return 0, base.NewErrMpeghUnsupported("unsupported sampling rate. rate=%d", usacSamplingFrequency)
}

// ----- bitCursor -----------------------------------------------------------------------------------------------------

// bitCursor 在 nazabits.BitReader 的基础上统计已读取的bit数，并统一错误类型
type bitCursor struct {
	br   *nazabits.BitReader
	read uint
}

func newBitCursor(br *nazabits.BitReader) *bitCursor {
	return &bitCursor{br: br}
}

func (c *bitCursor) bitsRead() uint {
	return c.read
}

func (c *bitCursor) readBits(n uint) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	v, err := c.br.ReadBits32(n)
	if err != nil {
		return 0, base.NewErrMpegh("read bits failed. n=%d, read=%d, err=%+v", n, c.read, nazaerrors.Wrap(err))
	}
	c.read += n
	return v, nil
}

func (c *bitCursor) readFlag() (bool, error) {
	v, err := c.readBits(1)
	return v == 1, err
}

func (c *bitCursor) skipBits(n uint) error {
	if n == 0 {
		return nil
	}
	if err := c.br.SkipBits(n); err != nil {
		return base.NewErrMpegh("skip bits failed. n=%d, read=%d, err=%+v", n, c.read, nazaerrors.Wrap(err))
	}
	c.read += n
	return nil
}

// readEscapedValue
//
// <ISO_IEC_23003-3.pdf> <Table 19 - Syntax of escapedValue()>
func (c *bitCursor) readEscapedValue(nBits1, nBits2, nBits3 uint) (uint64, error) {
	v, err := c.readBits(nBits1)
	if err != nil {
		return 0, err
	}
	value := uint64(v)
	if value != 1<<nBits1-1 {
		return value, nil
	}

	v, err = c.readBits(nBits2)
	if err != nil {
		return 0, err
	}
	value += uint64(v)
	if uint64(v) != 1<<nBits2-1 {
		return value, nil
	}

	v, err = c.readBits(nBits3)
	if err != nil {
		return 0, err
	}
	return value + uint64(v), nil
}
