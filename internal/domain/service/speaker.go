// Package service 提供领域服务
package service

import (
	"strings"

	"sherry-reader/internal/domain/entity"
)

// SpeakerRule 说话人匹配规则，按声明顺序求值
type SpeakerRule int

const (
	// RuleExactName 角色名与 speaker 完全一致
	RuleExactName SpeakerRule = iota
	// RuleExactID 角色 id 与 speaker 完全一致
	RuleExactID
	// RuleNameContainsSpeaker 角色名包含 speaker
	RuleNameContainsSpeaker
	// RuleSpeakerContainsToken speaker 包含角色名的首个空格分词
	RuleSpeakerContainsToken
	// RuleSpeakerContainsName speaker 包含完整角色名
	RuleSpeakerContainsName
)

// speakerRules 固定的规则求值顺序
var speakerRules = []SpeakerRule{
	RuleExactName,
	RuleExactID,
	RuleNameContainsSpeaker,
	RuleSpeakerContainsToken,
	RuleSpeakerContainsName,
}

// ResolveSpeaker 将对话片段的 speaker 文本解析为角色。
// 主角字面量（"我"）解析为 nil 且不视为失败；
// 其余按角色声明顺序取第一个命中任一规则的角色，全部未命中返回 nil。
func ResolveSpeaker(speaker string, characters []entity.Character) *entity.Character {
	if speaker == entity.SelfSpeaker {
		return nil
	}
	for i := range characters {
		if MatchSpeaker(speaker, &characters[i]) {
			return &characters[i]
		}
	}
	return nil
}

// IsSelfSpeaker 判断是否为主角自述
func IsSelfSpeaker(speaker string) bool {
	return speaker == entity.SelfSpeaker
}

// MatchSpeaker 判断角色是否命中任一匹配规则
func MatchSpeaker(speaker string, c *entity.Character) bool {
	for _, rule := range speakerRules {
		if matchRule(rule, speaker, c) {
			return true
		}
	}
	return false
}

func matchRule(rule SpeakerRule, speaker string, c *entity.Character) bool {
	switch rule {
	case RuleExactName:
		return c.Name == speaker
	case RuleExactID:
		return c.ID == speaker
	case RuleNameContainsSpeaker:
		return speaker != "" && strings.Contains(c.Name, speaker)
	case RuleSpeakerContainsToken:
		token, _, _ := strings.Cut(c.Name, " ")
		return token != "" && strings.Contains(speaker, token)
	case RuleSpeakerContainsName:
		return c.Name != "" && strings.Contains(speaker, c.Name)
	default:
		return false
	}
}

// ActiveCharacter 解析章节的当前说话角色：
// 优先 chapter.characterId，回退到第一个声明的角色。
func ActiveCharacter(story *entity.Story, chapter *entity.Chapter) *entity.Character {
	if chapter != nil && chapter.CharacterID != "" {
		if c := story.CharacterByID(chapter.CharacterID); c != nil {
			return c
		}
	}
	if len(story.Characters) == 0 {
		return nil
	}
	return &story.Characters[0]
}
