package audio

import "math"

// clampVolume 截断到 0..MaxVolume
func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}

// gain 原生音量换算成 effects.Volume 参数（Base 2）
//
// 100 为原始响度，200 为两倍振幅，0 静音。
func gain(native int) (volume float64, silent bool) {
	native = clampVolume(native)
	if native == 0 {
		return 0, true
	}
	return math.Log2(float64(native) / 100), false
}
