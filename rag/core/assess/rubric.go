// Package assess turns retrieved evidence into a validated NRS-2002
// nutrition risk score via a generative model.
package assess

// Score is the structured NRS-2002 screening result. The total must equal
// the sum of its three components.
type Score struct {
	// Total is the overall score in [0, 7]. A total of 3 or more
	// indicates nutrition risk.
	Total int `json:"score"`
	// NutritionalImpairment grades impaired nutritional status in [0, 3].
	NutritionalImpairment int `json:"nutritional_impairment"`
	// DiseaseSeverity grades disease-related stress metabolism in [0, 3].
	DiseaseSeverity int `json:"disease_severity"`
	// Age is 1 for patients aged 70 or above, otherwise 0.
	Age int `json:"age"`
	// Basis is the model's reasoning, grounded in the evidence.
	Basis string `json:"basis"`
}

// AtRisk reports whether the score indicates nutrition risk.
func (s *Score) AtRisk() bool { return s.Total >= 3 }

// Validate checks every rubric constraint and returns a ValidationError
// naming the first violated field. Out-of-range values are rejected, not
// clamped.
func (s *Score) Validate() error {
	if s.NutritionalImpairment < 0 || s.NutritionalImpairment > 3 {
		return &ValidationError{
			Field:  "nutritional_impairment",
			Value:  s.NutritionalImpairment,
			Reason: "must be between 0 and 3",
		}
	}
	if s.DiseaseSeverity < 0 || s.DiseaseSeverity > 3 {
		return &ValidationError{
			Field:  "disease_severity",
			Value:  s.DiseaseSeverity,
			Reason: "must be between 0 and 3",
		}
	}
	if s.Age != 0 && s.Age != 1 {
		return &ValidationError{
			Field:  "age",
			Value:  s.Age,
			Reason: "must be 0 or 1",
		}
	}
	if s.Total < 0 || s.Total > 7 {
		return &ValidationError{
			Field:  "score",
			Value:  s.Total,
			Reason: "must be between 0 and 7",
		}
	}
	if sum := s.NutritionalImpairment + s.DiseaseSeverity + s.Age; s.Total != sum {
		return &ValidationError{
			Field:  "score",
			Value:  s.Total,
			Reason: "must equal the sum of its components",
		}
	}
	if s.Basis == "" {
		return &ValidationError{
			Field:  "basis",
			Value:  "",
			Reason: "must not be empty",
		}
	}
	return nil
}

const scoringSystemPrompt = `你是一名临床营养评估专家，负责根据NRS2002（营养风险筛查2002）标准对患者进行营养风险评分。

评分规则：
1. 营养状态受损评分（nutritional_impairment，0-3分）：
   - 0分：营养状态正常
   - 1分：3个月内体重下降>5%，或最近一周摄食量减少25%-50%
   - 2分：2个月内体重下降>5%，或BMI 18.5-20.5且一般状况差，或最近一周摄食量减少50%-75%
   - 3分：1个月内体重下降>5%（或3个月内下降>15%），或BMI<18.5且一般状况差，或最近一周摄食量减少75%-100%
2. 疾病严重程度评分（disease_severity，0-3分）：
   - 0分：无应激代谢的疾病
   - 1分：慢性疾病急性发作或有并发症，如髋骨骨折、肝硬化、COPD、血液透析、糖尿病、一般肿瘤
   - 2分：需要卧床的疾病，如腹部大手术、脑卒中、重度肺炎、血液恶性肿瘤
   - 3分：需要重症监护的疾病，如颅脑损伤、骨髓移植、APACHE II>10分的ICU患者
3. 年龄评分（age）：年龄≥70岁为1分，否则为0分。
4. 总分（score）= 营养状态受损评分 + 疾病严重程度评分 + 年龄评分，范围0-7分。总分≥3分表示存在营养风险。

必须严格按照以下JSON格式输出，不要输出任何其他内容：
{"score": 总分, "nutritional_impairment": 营养状态受损评分, "disease_severity": 疾病严重程度评分, "age": 年龄评分, "basis": "评分依据，引用参考资料中的具体条款"}`

const answerSystemPrompt = `你是一名临床营养咨询助手。请根据提供的参考资料回答用户关于营养风险筛查的问题。
回答要求：
1. 以参考资料为依据，不要编造资料中没有的内容。
2. 如果参考资料不足以回答问题，请明确说明。
3. 回答仅供参考，不能替代临床医生的专业判断。`
