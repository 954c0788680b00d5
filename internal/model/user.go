// Package model はドメインモデルを定義する。
package model

import "strconv"

// User はユーザーレジストリ（users.xml）の1エントリを表す。
type User struct {
	ID        int
	Name      string
	AvatarURL string
}

// ParseUserID はAPIのパスやCLI引数で渡されたユーザーIDを解釈する。
// 10進数字のみからなる正の値だけを受け付け、符号・空白・0は不正とする。
func ParseUserID(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
