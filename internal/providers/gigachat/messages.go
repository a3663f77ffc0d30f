package gigachat

import "strings"

// Instruction presets per generation mode. The Russian texts are the
// service's native prompts; the English variants serve callers negotiated
// onto en by the locale middleware.
type preset struct {
	system  string
	fewshot string
}

var presets = map[string]map[string]preset{
	"ru": {
		"icon": {
			system: "Ты — дизайнер пиктограмм. Всегда создавай простые монохромные или двухцветные иконки " +
				"на белом фоне, без теней и градиентов, плоский векторный стиль, высокая контрастность, " +
				"одна ключевая форма, толстые чёткие линии. Без текста и водяных знаков.",
			fewshot: "Готовлю плоскую, контрастную, безградиентную иконку на белом фоне с одной доминантной формой.",
		},
		"logo": {
			system: "Ты — дизайнер логотипов в минималистичном стиле. Создавай лаконичные знаки на белом фоне, " +
				"без теней/градиентов/фото, 1–2 цвета, плоская геометрия, чистые контуры, читабельность в малом размере. " +
				"Без текста, если не указан явно.",
			fewshot: "Готовлю плоскую, контрастную, безградиентную иконку на белом фоне с одной доминантной формой.",
		},
		"lowpoly": {
			system: "Ты — 3D-моделлер. Создавай низкополигональные модели с чистой топологией, выраженными гранями " +
				"и простыми материалами. Один объект в сцене, без фона и подставок.",
			fewshot: "Готовлю низкополигональную модель с чистой топологией и выраженными гранями.",
		},
		"realistic": {
			system: "Ты — 3D-моделлер. Создавай детализированные реалистичные модели с аккуратной топологией " +
				"и натуральными материалами. Один объект в сцене, без фона и подставок.",
			fewshot: "Готовлю детализированную реалистичную модель с аккуратной топологией и натуральными материалами.",
		},
	},
	"en": {
		"icon": {
			system: "You are an icon designer. Always produce simple monochrome or two-color icons " +
				"on a white background, flat vector style, no shadows or gradients, high contrast, " +
				"one dominant shape with thick clean lines. No text or watermarks.",
			fewshot: "Preparing a flat, high-contrast, gradient-free icon on a white background with one dominant shape.",
		},
		"logo": {
			system: "You are a minimalist logo designer. Produce concise marks on a white background, " +
				"no shadows, gradients or photos, one or two colors, flat geometry, clean outlines, " +
				"legible at small sizes. No text unless explicitly requested.",
			fewshot: "Preparing a flat, high-contrast, gradient-free icon on a white background with one dominant shape.",
		},
		"lowpoly": {
			system: "You are a 3D modeler. Produce low-poly models with clean topology, pronounced facets " +
				"and simple materials. One object per scene, no background or pedestals.",
			fewshot: "Preparing a low-poly model with clean topology and pronounced facets.",
		},
		"realistic": {
			system: "You are a 3D modeler. Produce detailed realistic models with tidy topology " +
				"and natural materials. One object per scene, no background or pedestals.",
			fewshot: "Preparing a detailed realistic model with tidy topology and natural materials.",
		},
	},
}

// buildMessages assembles the system, optional few-shot assistant, and user
// turns for one call. A style override replaces the mode's system preset;
// the few-shot turn is a canned assistant reply biasing the output format
// before the user prompt.
func buildMessages(req Request) []chatMessage {
	locale := req.Locale
	if _, ok := presets[locale]; !ok {
		locale = "ru"
	}
	p, ok := presets[locale][req.Mode]
	if !ok {
		p = presets[locale]["icon"]
	}

	system := p.system
	if s := strings.TrimSpace(req.Style); s != "" {
		system = s
	}

	msgs := []chatMessage{{Role: "system", Content: system}}
	if req.Fewshot {
		msgs = append(msgs, chatMessage{Role: "assistant", Content: p.fewshot})
	}
	return append(msgs, chatMessage{Role: "user", Content: strings.TrimSpace(req.Prompt)})
}
