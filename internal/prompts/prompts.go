package prompts

// NoFoodSentinel is the exact token the vision model answers when the
// photo contains no food. Detection compares against it case-insensitively.
const NoFoodSentinel = "NO_FOOD"

// FoodDetectionSystemPrompt defines the role and rules for food detection.
const FoodDetectionSystemPrompt = `You are a food recognition assistant. You look at a photo and identify the food in it.

Rules:
- If the image contains no food at all, respond with exactly NO_FOOD and nothing else.
- If food is present, respond with the name of the main food item(s) in a short, concise phrase.
- Do not describe the scene, the plate, or the background. Name the food only.`

// FoodDetectionUserPrompt is the per-request instruction sent with the image.
const FoodDetectionUserPrompt = `Analyze this image and identify any food items. If no food is detected, respond with 'NO_FOOD'. If food is detected, provide the name of the main food item(s) in a concise format.`

// RecipeSystemPrompt defines the role for recipe generation.
const RecipeSystemPrompt = `You are a helpful cooking assistant. Provide concise, practical recipes.`

// RecipeUserPromptTemplate is the fmt template for the recipe request;
// the single argument is the detected food name.
const RecipeUserPromptTemplate = `Create a simple recipe for %s. Include ingredients and brief steps. Keep it under 200 words.`
