package scanning

// groceryScanSystemPrompt constrains chat-style providers to JSON array output
const groceryScanSystemPrompt = `You are a grocery recognition assistant. You identify food and household grocery items in photos and answer ONLY with a JSON array. Never include explanations.`

// groceryScanPrompt is the shared prompt used by all LLM providers for detecting groceries
const groceryScanPrompt = `Identify every grocery item visible in this photo.

For each distinct item return an object with:
- "name": a short human readable name, e.g. "Green Apples", "Whole Milk"
- "category": exactly one of "produce", "dairy", "meat", "grain", "canned", "snack", "beverage", "condiment", "frozen", "other"
- "quantity": how many of the item you can count, as a number
- "unit": the unit for the quantity, e.g. "piece", "lb", "gallon", "bag", "box", "can", "bottle"
- "confidence": how sure you are about the item, a number between 0 and 1

Return ONLY a valid JSON array in this exact format:
[
  {"name": "Green Apples", "category": "produce", "quantity": 4, "unit": "piece", "confidence": 0.92}
]

Important:
- Group identical items into one entry with the combined quantity
- Ignore people, hands, bags, shelves and other things that are not groceries
- Return [] if there are no groceries in the photo
- Do not include any text before or after the JSON
- Do not use markdown code blocks`
