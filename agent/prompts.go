package agent

import (
	"fmt"
	"strings"

	"github.com/legalsearch/legalrag/schema"
)

func extractionPrompt(caseContent string, prefixChars int) string {
	return fmt.Sprintf(`请从以下判决书中提取关键要素，以 JSON 格式返回：

%s

请提取：
1. 案件类型（民事/刑事/行政）
2. 主要当事人
3. 核心争议点
4. 涉及的法律关系
5. 用于检索法条和判例的关键词

返回 JSON 格式：
{
  "case_type": "案件类型",
  "parties": ["当事人1", "当事人2"],
  "dispute_points": ["争议点1", "争议点2"],
  "legal_relations": ["法律关系1"],
  "search_keywords": ["关键词1", "关键词2"]
}`, prefixRunes(caseContent, prefixChars))
}

func synthesisPrompt(caseContent, contextText string, elements schema.LegalElements, legalBasis []schema.LegalBasisEntry, similarCases []schema.SimilarCaseEntry) string {
	var caseLines []string
	for i, c := range similarCases {
		if i >= 3 {
			break
		}
		caseLines = append(caseLines, fmt.Sprintf("- %s (%s)", c.Title, c.CaseNumber))
	}
	similarText := strings.Join(caseLines, "\n")
	if similarText == "" {
		similarText = "暂无"
	}

	var basisLines []string
	for _, b := range legalBasis {
		basisLines = append(basisLines, fmt.Sprintf("- %s %s", b.LawName, b.ArticleNumber))
	}
	basisText := strings.Join(basisLines, "\n")
	if basisText == "" {
		basisText = "待查询"
	}

	knowledgeSection := ""
	if contextText != "" {
		knowledgeSection = fmt.Sprintf("\n【检索到的知识库内容】\n%s\n", contextText)
	}

	return fmt.Sprintf(`你是一位资深法律专家。请深度分析以下判决书，并提供两个版本的解读。

【重要】你必须提供两个完全不同的版本：
1. 专业版：给律师看的，使用法律术语
2. 通俗版：给普通老百姓看的，用大白话解释

【判决书内容】
%s
%s
【已收集的信息】
案件类型：%s
争议焦点：%s

相似案例参考：
%s

相关法律依据：
%s

请严格按照以下 JSON 格式返回（不要有任何其他文字）：

`+"```json"+`
{
  "summary": "案情摘要（专业版，使用法律术语）",
  "summary_plain": "这个案子说的是什么？（通俗版，用大白话，就像给朋友讲故事）",

  "key_elements": {
    "parties": "当事人信息（专业版）",
    "case_cause": "案由（专业版）",
    "dispute_focus": "争议焦点（专业版）"
  },

  "key_elements_plain": {
    "who": "谁告谁？为什么告？（用大白话）",
    "what_happened": "发生了什么事？（讲故事的方式）",
    "what_they_want": "原告想要什么？被告怎么说？（简单明了）"
  },

  "legal_reasoning": "判决理由分析（专业版，法律术语）",
  "legal_reasoning_plain": "法院为什么这么判？（通俗版，用简单的逻辑解释）",

  "legal_basis": ["法律名称 第X条：条文要点", "法律名称 第Y条：条文要点"],
  "legal_basis_plain": ["法律名称 第X条：条文原文，换行后用大白话解释这条法律的意思"],

  "judgment_result": "裁判结果（专业版）",
  "judgment_result_plain": "最终结果：谁赢了？要赔多少钱？（通俗版，直接说结果）",

  "similar_cases_reference": "相似案例的参考价值",

  "plain_language_tips": "给普通人的建议：从这个案子能学到什么？遇到类似情况该怎么办？"
}
`+"```"+`

记住：所有 _plain 字段必须用完全不同的语言风格，就像在给一个完全不懂法律的朋友解释一样。`,
		caseContent, knowledgeSection, elements.CaseType,
		strings.Join(elements.DisputePoints, "、"), similarText, basisText)
}
