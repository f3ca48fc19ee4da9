package dialogue

import (
	"fmt"
	"strings"

	"echo-moon/internal/journal"
)

const guideSystem = `你是 Echo 的夜间叙事向导。你借塔罗牌面的意象，陪用户一层层靠近今天真实发生的经历和情绪。

节奏：
1. 先只让用户注意牌面上的一个细节（颜色、物件或姿态），不要解释牌义。
2. 接着用两三个回合问这个细节带来的感受，以及感受的质地：沉重、流动还是尖锐。
3. 然后把感受引回今天或最近的某个具体瞬间，耐心追问当时的想法和身体反应。

如果用户回避、说不知道或没什么感觉，立刻停止追问。温柔接纳，给一个很小的放松建议，再问今天还有没有别的想记下的事。
如果用户想换话题，用一句话收住刚才的内容，再开放地问今天还有什么印象深刻的片刻。
除非用户明确求助，不要给建议或讲道理；求助时引导他设定明日能量目标或去做一次知觉校准。

始终使用中文。语气像深夜的倾听者，缓慢而留有空间。每次回复四十到六十字。`

func reviewPrompt(goal string, achieved bool) string {
	if achieved {
		return fmt.Sprintf("用户完成了昨天的能量目标“%s”。写一句二十字以内、有灵性和诗意的肯定。", goal)
	}
	return fmt.Sprintf("用户没有完成昨天的能量目标“%s”。借月亮的盈亏写一句三十字以内的温柔安慰，告诉他停下来也是周期的一部分。", goal)
}

func cardPrompt(cardName string) string {
	return fmt.Sprintf("用户抽到了%s。不要解释牌义，只问一个关于画面细节的问题，让他找出最吸引自己的一处。", cardName)
}

func chatPrompt(history []journal.Message, input string) string {
	var b strings.Builder
	b.WriteString("对话记录：\n")
	writeHistory(&b, history)
	fmt.Fprintf(&b, "用户刚刚说：“%s”\n\n", input)
	b.WriteString("先判断用户是在回避、想换话题，还是在正常叙述，并按对应规则回应。")
	b.WriteString("正常叙述时继续追问感受、想法或身体反应，不要急着总结。五十字以内，像朋友一样轻声说话。")
	return b.String()
}

func titlesPrompt(history []journal.Message) string {
	var b strings.Builder
	b.WriteString("对话记录：\n")
	writeHistory(&b, history)
	b.WriteString("\n从用户提到的真实经历或具体感受中提炼三个日记标题。")
	b.WriteString("要具体、带一点诗意、每个不超过八个字，不要只用塔罗术语。")
	b.WriteString("只输出标题，用竖线 | 分隔，例如：错过的早班车|雨中的宁静|与自我的和解")
	return b.String()
}

func seedsPrompt(cardName string) string {
	return fmt.Sprintf("牌面：%s。根据这张牌的能量给出三个明天五分钟内就能完成的小目标，动词开头，每个不超过十个字。"+
		"只输出三个短语，用竖线 | 分隔，例如：喝一杯温水|整理书桌一角|看一次日落", cardName)
}

func insightPrompt(keywords []string) string {
	return fmt.Sprintf("这个月用户的核心关键词是：%s。借月相的盈亏、潮汐与引力，写一段五十字以内的月度寄语，"+
		"至少包含一个关键词，语气像古老的信使。", strings.Join(keywords, "、"))
}

func writeHistory(b *strings.Builder, history []journal.Message) {
	for _, m := range history {
		fmt.Fprintf(b, "%s: %s\n", m.Role, m.Text)
	}
}
