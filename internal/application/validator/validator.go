// Package validator 提供小说 JSON 文档的内容校验。
// 校验分为结构检查（必填字段、类型）与逻辑完整性检查（引用、说话人解析），
// 除 JSON 解析失败外不会中断，始终返回完整的错误与建议列表。
package validator

import (
	"encoding/json"
	"fmt"
	"strings"

	"sherry-reader/internal/domain/entity"
	"sherry-reader/internal/domain/service"
)

// 稳定的问题分类，报告与测试按分类断言
const (
	CategoryParse          = "JSON 解析失败"
	CategoryMetadata       = "Metadata 缺失"
	CategoryMetadataFormat = "Metadata 格式错误"
	CategoryCharacters     = "Characters 缺失"
	CategoryChapters       = "Chapters 缺失"
	CategoryBrokenLink     = "逻辑断层"
	CategoryOrphanRef      = "引用孤岛"
	CategoryAvatar         = "头像校验"
)

// Issue 单条校验问题
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Result 校验结果
type Result struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// OK 是否通过（仅错误计入，建议项不阻塞）
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

func (r *Result) addError(category, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{Category: category, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) addWarning(category, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Message: fmt.Sprintf(format, args...)})
}

// Validate 校验小说 JSON 文档。
// 输入无法解析为 JSON 时返回单条解析错误并终止；
// 其余检查按 元数据 -> 角色 -> 章节 -> 逻辑完整性 -> 说话人/头像 的顺序全部执行，
// 同一缺陷违反多条规则时会重复出现，不做去重。
func Validate(raw []byte) *Result {
	r := &Result{}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		r.addError(CategoryParse, "%v", err)
		return r
	}

	checkMetadata(r, doc)
	checkCharacters(r, doc)
	checkChapters(r, doc)
	checkLogicalIntegrity(r, doc)
	checkSpeakers(r, doc)

	return r
}

// checkMetadata 校验文档元数据必填字段
func checkMetadata(r *Result, doc map[string]any) {
	required := []string{"id", "title", "author", "description", "tags"}
	for _, field := range required {
		if isZeroValue(doc[field]) {
			r.addError(CategoryMetadata, "缺少必填字段: %s", field)
		}
	}
	if tags, ok := doc["tags"]; ok && tags != nil {
		if _, isArr := tags.([]any); !isArr {
			r.addError(CategoryMetadataFormat, "tags 必须是数组")
		}
	}
}

// checkCharacters 校验角色配置
func checkCharacters(r *Result, doc map[string]any) {
	chars, ok := doc["characters"].([]any)
	if !ok {
		r.addError(CategoryCharacters, "必须包含 characters 数组")
		return
	}

	for i, item := range chars {
		char, ok := item.(map[string]any)
		if !ok {
			r.addError(fmt.Sprintf("角色[%d]", i), "角色必须是对象")
			continue
		}
		prefix := fmt.Sprintf("角色[%d](%s)", i, stringOr(char["name"], "未命名"))
		if isZeroValue(char["id"]) {
			r.addError(prefix, "缺少 id")
		}
		if intimacy, ok := char["intimacy"].(map[string]any); ok {
			if isZeroValue(intimacy["upgradePath"]) {
				r.addError(prefix, "intimacy 缺少 upgradePath")
			}
		}
		if isZeroValue(char["avatar"]) {
			r.addWarning(prefix, "角色 %q 配置了但未设置头像", stringOr(char["name"], "未命名"))
		}
	}
}

// checkChapters 校验章节、段落与片段结构
func checkChapters(r *Result, doc map[string]any) {
	chapters, ok := doc["chapters"].([]any)
	if !ok {
		r.addError(CategoryChapters, "必须包含 chapters 数组")
		return
	}

	for ci, item := range chapters {
		chapter, ok := item.(map[string]any)
		if !ok {
			r.addError(fmt.Sprintf("章节[%d]", ci), "章节必须是对象")
			continue
		}
		prefix := fmt.Sprintf("章节[%d](%s)", ci, stringOr(chapter["title"], "未命名"))

		paragraphs, ok := chapter["paragraphs"].([]any)
		if !ok {
			r.addError(prefix, "缺少 paragraphs 数组")
			continue
		}

		for pi, pItem := range paragraphs {
			para, ok := pItem.(map[string]any)
			if !ok {
				r.addError(fmt.Sprintf("%s -> 段落[%d]", prefix, pi), "段落必须是对象")
				continue
			}
			pPrefix := fmt.Sprintf("%s -> 段落[%d](%s)", prefix, pi, stringOr(para["id"], "无ID"))
			if isZeroValue(para["id"]) {
				r.addError(pPrefix, "缺少 id")
			}
			parts, ok := para["parts"].([]any)
			if !ok {
				r.addError(pPrefix, "缺少 parts 数组")
				continue
			}
			for pti, ptItem := range parts {
				part, _ := ptItem.(map[string]any)
				ptType := stringOr(part["type"], "")
				if ptType != string(entity.PartNarration) && ptType != string(entity.PartDialogue) {
					r.addError(fmt.Sprintf("%s -> Part[%d]", pPrefix, pti), "无效的 type: %s", ptType)
				}
				// 统一策略：对话缺少 speaker 记为建议项（宽松档）
				if ptType == string(entity.PartDialogue) && isZeroValue(part["speaker"]) {
					r.addWarning(fmt.Sprintf("%s -> Part[%d]", pPrefix, pti), "对话类型建议填写 speaker")
				}
			}
		}
	}
}

// checkLogicalIntegrity 图级引用完整性：选项跳转目标与亲密度条件引用。
// 段落 id 跨章节全局收集，选项允许指向其他章节的段落。
func checkLogicalIntegrity(r *Result, doc map[string]any) {
	chapters, ok := doc["chapters"].([]any)
	if !ok {
		return
	}

	paragraphIDs := map[string]bool{}
	choiceIDs := map[string]bool{}

	type pendingChoice struct {
		choiceID string
		target   string
	}
	var pending []pendingChoice

	for _, item := range chapters {
		chapter, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, para := range allParagraphMaps(chapter) {
			if id := stringOr(para["id"], ""); id != "" {
				paragraphIDs[id] = true
			}
			choices, _ := para["choices"].([]any)
			for _, cItem := range choices {
				choice, ok := cItem.(map[string]any)
				if !ok {
					continue
				}
				id := stringOr(choice["id"], "")
				if id != "" {
					choiceIDs[id] = true
				}
				targets, _ := choice["nextParagraphs"].([]any)
				for _, t := range targets {
					pending = append(pending, pendingChoice{choiceID: id, target: stringOr(t, "")})
				}
			}
		}
	}

	// 全部段落 id 收集完毕后再核对跳转目标
	for _, p := range pending {
		if !paragraphIDs[p.target] {
			r.addError(CategoryBrokenLink, "选项 %s 指向的段落 %s 不存在", p.choiceID, p.target)
		}
	}

	// 亲密度条件引用的选项 id 未找到时仅作建议：创作顺序可能先写条件后写选项
	chars, _ := doc["characters"].([]any)
	for _, item := range chars {
		char, ok := item.(map[string]any)
		if !ok {
			continue
		}
		intimacy, ok := char["intimacy"].(map[string]any)
		if !ok {
			continue
		}
		path, _ := intimacy["upgradePath"].([]any)
		for _, lItem := range path {
			level, ok := lItem.(map[string]any)
			if !ok {
				continue
			}
			cond, ok := level["condition"].(map[string]any)
			if !ok {
				continue
			}
			if stringOr(cond["type"], "") != "choice" {
				continue
			}
			if id := stringOr(cond["id"], ""); id != "" && !choiceIDs[id] {
				r.addWarning(CategoryOrphanRef, "角色 %s 的好感度条件 ID %s 在剧情选项中未找到", stringOr(char["name"], "未命名"), id)
			}
		}
	}
}

// checkSpeakers 读者侧校验：所有对话 speaker（主角除外）必须解析到配置了头像的角色。
// UI 总是渲染头像，因此缺少头像的角色被引用即为错误。
func checkSpeakers(r *Result, doc map[string]any) {
	characters := collectCharacters(doc)

	speakers := map[string]bool{}
	var order []string

	chapters, _ := doc["chapters"].([]any)
	for _, item := range chapters {
		chapter, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, para := range allParagraphMaps(chapter) {
			parts, _ := para["parts"].([]any)
			for _, ptItem := range parts {
				part, ok := ptItem.(map[string]any)
				if !ok {
					continue
				}
				if stringOr(part["type"], "") != string(entity.PartDialogue) {
					continue
				}
				speaker := stringOr(part["speaker"], "")
				if speaker == "" || service.IsSelfSpeaker(speaker) {
					continue
				}
				if !speakers[speaker] {
					speakers[speaker] = true
					order = append(order, speaker)
				}
			}
		}
	}

	for _, speaker := range order {
		character := service.ResolveSpeaker(speaker, characters)
		switch {
		case character == nil:
			r.addError(CategoryAvatar, "对话角色 %q 未在角色配置中找到", speaker)
		case character.Avatar == "":
			r.addError(CategoryAvatar, "角色 %q 缺少头像配置", character.Name)
		case !strings.HasPrefix(character.Avatar, "http"):
			r.addWarning(CategoryAvatar, "角色 %q 的头像URL可能无效: %s", character.Name, character.Avatar)
		}
	}
}

// collectCharacters 从原始文档提取说话人解析所需的最小角色信息
func collectCharacters(doc map[string]any) []entity.Character {
	chars, _ := doc["characters"].([]any)
	out := make([]entity.Character, 0, len(chars))
	for _, item := range chars {
		char, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, entity.Character{
			ID:     stringOr(char["id"], ""),
			Name:   stringOr(char["name"], ""),
			Avatar: stringOr(char["avatar"], ""),
		})
	}
	return out
}

// allParagraphMaps 返回章节的 paragraphs ∪ extendedParagraphs
func allParagraphMaps(chapter map[string]any) []map[string]any {
	var out []map[string]any
	for _, key := range []string{"paragraphs", "extendedParagraphs"} {
		items, _ := chapter[key].([]any)
		for _, item := range items {
			if para, ok := item.(map[string]any); ok {
				out = append(out, para)
			}
		}
	}
	return out
}

// stringOr 取字符串值，非字符串或缺失时返回默认值
func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

// isZeroValue 按 falsy 语义判断字段缺失：nil、空串、false、0 均视为缺失
func isZeroValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case float64:
		return x == 0
	default:
		return false
	}
}
