package reader

import "math/rand"

// 角色模拟回复的固定话术池。
// 触发剧情推进时用承上启下的话术，普通对话用闲聊话术。
var (
	contextReplies = []string{
		"你问到了关键点...",
		"让我告诉你更多...",
		"这正是我想说的...",
		"看来你开始理解了...",
	}

	normalReplies = []string{
		"很有趣的想法。",
		"你真的这么觉得吗？",
		"我不知道该怎么回答你...",
		"这种感觉...很奇妙。",
		"哼，勉强算你说的对。",
	}
)

// ReplyPicker 从话术池中选取一条回复，测试可注入固定实现
type ReplyPicker func(pool []string) string

// RandomReply 默认的随机选取
func RandomReply(pool []string) string {
	return pool[rand.Intn(len(pool))]
}
