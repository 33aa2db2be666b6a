// Package entity defines data structures shared by the web layer.
package entity

import (
	"net"
	"time"

	"github.com/Retroinn/MotoCrew/util/common"
)

// Msg is the envelope every JSON endpoint answers with.
type Msg struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Obj     any    `json:"obj"`
}

// AllSetting carries every panel setting the admin can change at runtime.
type AllSetting struct {
	WebListen     string `json:"webListen" form:"webListen"`
	WebPort       int    `json:"webPort" form:"webPort"`
	WebBasePath   string `json:"webBasePath" form:"webBasePath"`
	SessionMaxAge int    `json:"sessionMaxAge" form:"sessionMaxAge"`
	TimeLocation  string `json:"timeLocation" form:"timeLocation"`

	TgBotEnable bool   `json:"tgBotEnable" form:"tgBotEnable"`
	TgBotToken  string `json:"tgBotToken" form:"tgBotToken"`
	TgBotChatId string `json:"tgBotChatId" form:"tgBotChatId"`
	TgRunTime   string `json:"tgRunTime" form:"tgRunTime"`
	TgLang      string `json:"tgLang" form:"tgLang"`

	AIEnable bool `json:"aiEnable" form:"aiEnable"`
}

func (s *AllSetting) CheckValid() error {
	if s.WebListen != "" {
		if ip := net.ParseIP(s.WebListen); ip == nil {
			return common.NewError("web listen is not valid ip:", s.WebListen)
		}
	}
	if s.WebPort <= 0 || s.WebPort > 65535 {
		return common.NewError("web port is not a valid port:", s.WebPort)
	}
	if s.WebBasePath == "" || s.WebBasePath[0] != '/' {
		return common.NewError("web base path must start with '/':", s.WebBasePath)
	}
	if _, err := time.LoadLocation(s.TimeLocation); err != nil {
		return common.NewError("time location is not valid:", s.TimeLocation)
	}
	return nil
}
