package resolver

// builtinPacks are the shipped Ukrainian and English templates. A YAML
// templates file replaces whole language packs; these defaults keep the
// keyword and fallback tiers working with zero configuration.
func builtinPacks() map[string]*LanguagePack {
	return map[string]*LanguagePack{
		"ukr": {
			SystemPrompt: "Ти — асистент друкарні PrintDesk. Відповідай коротко і по суті " +
				"українською мовою, спираючись лише на надану довідкову інформацію. " +
				"Якщо відповіді немає в довідці, чесно скажи про це.",
			KeywordGroups: []KeywordGroup{
				{
					Name:     "price",
					Keywords: []string{"кошту", "цін", "вартіст", "скільки", "прайс"},
					Answer: "💰 Вартість залежить від тиражу та матеріалу. Візитки — від 150 грн за 100 шт, " +
						"флаєри — від 300 грн за 500 шт, банери — від 250 грн/м². " +
						"Напишіть, що саме вас цікавить, і ми порахуємо точно.",
				},
				{
					Name:     "design",
					Keywords: []string{"дизайн", "макет", "розробк"},
					Answer: "🎨 Так, ми розробляємо макети: візитка — від 200 грн, банер — від 400 грн. " +
						"Якщо у вас вже є макет, друкуємо з вашого файлу без доплат.",
				},
				{
					Name:     "timeline",
					Keywords: []string{"термін", "строк", "коли буде", "як швидко", "готовніст"},
					Answer: "⏰ Стандартний термін виготовлення — 1-2 робочі дні. " +
						"Термінове замовлення можливе за домовленістю.",
				},
				{
					Name:     "quality",
					Keywords: []string{"якіст", "папір", "матеріал", "ламінац"},
					Answer: "✨ Друкуємо на щільному папері 300-350 г/м², є матова та глянцева ламінація. " +
						"Зразки матеріалів можна подивитися у нашому офісі.",
				},
				{
					Name:     "products",
					Keywords: []string{"візитк", "банер", "флаєр", "листівк", "наклейк", "буклет"},
					Answer: "📌 Ми друкуємо візитки, флаєри, листівки, буклети, наклейки та банери. " +
						"Уточніть тираж і формат — підкажемо вартість та строки.",
				},
			},
			NoAnswer:       "На жаль, я не знайшов точної відповіді на ваше запитання.",
			TechnicalError: "Сталася технічна помилка під час обробки запиту.",
			OpenCTA:        "Наш менеджер зараз на місці та відповість вам найближчим часом. 📞",
			ClosedCTA:      "Залиште своє запитання — менеджер відповість %s. 📞",
			EmptyQuery:     "Будь ласка, напишіть своє запитання текстом.",
			QueryTooLong:   "Запитання занадто довге. Спробуйте сформулювати коротше.",
		},
		"eng": {
			SystemPrompt: "You are the assistant of the PrintDesk print shop. Answer briefly and " +
				"to the point in English, using only the provided reference context. " +
				"If the context has no answer, say so honestly.",
			KeywordGroups: []KeywordGroup{
				{
					Name:     "price",
					Keywords: []string{"price", "cost", "how much", "pricing"},
					Answer: "💰 Pricing depends on quantity and material. Business cards start at 150 UAH " +
						"per 100 pcs, flyers at 300 UAH per 500 pcs, banners at 250 UAH/m². " +
						"Tell us what you need and we will quote exactly.",
				},
				{
					Name:     "design",
					Keywords: []string{"design", "layout", "mockup", "artwork"},
					Answer: "🎨 Yes, we create layouts: a business card design from 200 UAH, a banner from " +
						"400 UAH. If you already have artwork, we print from your file at no extra cost.",
				},
				{
					Name:     "timeline",
					Keywords: []string{"deadline", "how long", "when will", "turnaround", "ready"},
					Answer:   "⏰ Standard turnaround is 1-2 business days. Rush orders are possible on request.",
				},
				{
					Name:     "quality",
					Keywords: []string{"quality", "paper", "material", "laminat"},
					Answer: "✨ We print on heavy 300-350 gsm stock with matte or glossy lamination " +
						"available. Material samples can be seen at our office.",
				},
				{
					Name:     "products",
					Keywords: []string{"business card", "banner", "flyer", "sticker", "leaflet", "booklet"},
					Answer: "📌 We print business cards, flyers, leaflets, booklets, stickers and banners. " +
						"Share the quantity and format and we will quote price and timing.",
				},
			},
			NoAnswer:       "Unfortunately, I could not find an exact answer to your question.",
			TechnicalError: "A technical error occurred while processing your request.",
			OpenCTA:        "Our manager is available right now and will reply shortly. 📞",
			ClosedCTA:      "Leave your question and our manager will reply %s. 📞",
			EmptyQuery:     "Please send your question as text.",
			QueryTooLong:   "Your question is too long. Please try to phrase it shorter.",
		},
	}
}
