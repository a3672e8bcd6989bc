package platform

import "reflect"

// mergeKeydowns 在单个 goroutine 中依次读取各热键的按下通道
//
// codes[i] 是 keydowns[i] 对应的键码。回调串行执行，顺序即读取顺序。
// 通道被关闭后不再参与选择，stop 关闭时返回。
func mergeKeydowns[E any](stop <-chan struct{}, keydowns []<-chan E, codes []int, callback KeyboardCallback) {
	cases := make([]reflect.SelectCase, 0, len(keydowns)+1)
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(stop)})
	for _, ch := range keydowns {
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ch)})
	}

	open := len(keydowns)
	for {
		chosen, _, ok := reflect.Select(cases)
		if chosen == 0 {
			return
		}
		if !ok {
			cases[chosen].Chan = reflect.Value{}
			open--
			if open == 0 {
				<-stop
				return
			}
			continue
		}
		code := codes[chosen-1]
		callback(KeyboardEvent{VKCode: code, ScanCode: code})
	}
}
