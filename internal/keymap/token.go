// Package keymap 定义按键令牌、控制动作以及两者之间的绑定表。
package keymap

import (
	"fmt"
	"unicode"
)

// NamedKey 具名特殊键
type NamedKey string

const (
	// NamedNone 非具名键
	NamedNone NamedKey = ""
	// NamedSpace 空格键
	NamedSpace NamedKey = "Space"
	// NamedBackspace 退格键
	NamedBackspace NamedKey = "Backspace"
)

// KeyToken 一次按键按下的规范化表示
//
// Code 始终是操作系统原始键标识（扫描码或虚拟键码，取决于配置），
// 控制绑定只比较 Code。Char 与 Named 只用于搜索文本输入，两者至多一个非零。
// KeyToken 是值类型，创建后不再修改。
type KeyToken struct {
	// Code 原始键标识
	Code int
	// Char 可显示字符（大小写保持系统给出的样子），无则为 0
	Char rune
	// Named 具名特殊键
	Named NamedKey
}

// CharToken 创建可显示字符令牌
func CharToken(code int, r rune) KeyToken {
	return KeyToken{Code: code, Char: r}
}

// NamedToken 创建具名特殊键令牌
func NamedToken(code int, name NamedKey) KeyToken {
	return KeyToken{Code: code, Named: name}
}

// RawToken 创建只有原始键标识的令牌
func RawToken(code int) KeyToken {
	return KeyToken{Code: code}
}

// IsChar 是否为可显示字符
func (t KeyToken) IsChar() bool {
	return t.Char != 0 && t.Named == NamedNone
}

// String 便于日志输出
func (t KeyToken) String() string {
	switch {
	case t.Named != NamedNone:
		return fmt.Sprintf("%s(%d)", t.Named, t.Code)
	case t.Char != 0:
		return fmt.Sprintf("%q(%d)", t.Char, t.Code)
	default:
		return fmt.Sprintf("key(%d)", t.Code)
	}
}

// Printable 判断字符能否进入搜索文本
//
// 控制字符与空格不算（空格以 NamedSpace 表示）。
func Printable(r rune) bool {
	return r != 0 && unicode.IsPrint(r) && !unicode.IsSpace(r)
}
